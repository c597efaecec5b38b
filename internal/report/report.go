// ============================================================================
// tidy-runner Report Journal
// ============================================================================
//
// Package: internal/report
// File: report.go
// Purpose: Append-only JSONL journal of per-file results, written as the run
// progresses and replayed afterwards to rebuild the run summary.
//
// Format: one JSON object per line. The first line is a header record with
// the run metadata; every following line is one CheckResult. Appending as
// results arrive (instead of dumping at the end) means an interrupted run
// still leaves a usable artifact for the CI log collector.
//
// ============================================================================

package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrNoHeader means the journal does not start with a header record.
	ErrNoHeader = errors.New("report journal missing header record")
)

// Header is the first journal line.
type Header struct {
	Record      string `json:"record"` // always "header"
	Environment string `json:"environment"`
	Total       int    `json:"total"`
	StartedAt   int64  `json:"started_at"` // Unix milliseconds
}

const headerRecord = "header"

// ============================================================================
// Writer
// ============================================================================

// Writer appends journal records. Safe for concurrent use; results from
// racing workers interleave line-atomically under the lock.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// Create opens the journal at path, truncating any previous run, and writes
// the header record.
func Create(path, environment string, total int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report journal: %w", err)
	}

	buf := bufio.NewWriter(f)
	w := &Writer{f: f, buf: buf, enc: json.NewEncoder(buf)}

	header := Header{
		Record:      headerRecord,
		Environment: environment,
		Total:       total,
		StartedAt:   time.Now().UnixMilli(),
	}
	if err := w.enc.Encode(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	return w, nil
}

// Append records one result and flushes it to disk so the journal survives
// an interrupt.
func (w *Writer) Append(result types.CheckResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(result); err != nil {
		return fmt.Errorf("failed to append report record: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes and closes the journal.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// ============================================================================
// Replay
// ============================================================================

// Replay reads a journal back and invokes handler for every result record
// in append order. Corrupt trailing lines (a killed run mid-write) end the
// replay without error; everything before them is intact.
func Replay(path string, handler func(types.CheckResult) error) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open report journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return Header{}, ErrNoHeader
	}
	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil || header.Record != headerRecord {
		return Header{}, ErrNoHeader
	}

	for scanner.Scan() {
		var result types.CheckResult
		if err := json.Unmarshal(scanner.Bytes(), &result); err != nil {
			break
		}
		if err := handler(result); err != nil {
			return header, err
		}
	}
	return header, scanner.Err()
}

// Summarize rebuilds a run summary from a journal.
func Summarize(path string) (types.RunSummary, error) {
	var summary types.RunSummary

	header, err := Replay(path, func(r types.CheckResult) error {
		if r.Failed() {
			summary.Failed++
			if r.TimedOut {
				summary.TimedOut++
			}
		} else {
			summary.Passed++
		}
		summary.Duration += r.Duration
		return nil
	})
	if err != nil {
		return summary, err
	}

	summary.Environment = header.Environment
	summary.Total = header.Total
	summary.StartedAt = header.StartedAt
	return summary, nil
}
