// ============================================================================
// tidy-runner Worklist - per-file state tracking
// ============================================================================
//
// Package: internal/worklist
// File: worklist.go
// Purpose: The shared, lock-guarded accumulator for one run.
//
// Design:
//   One files map is the single source of truth for per-file state; the
//   ordered failures slice is the side index the exit status and the fix
//   pass are computed from. Multiple workers report concurrently, so every
//   method takes the lock. The worklist is an explicit object handed to the
//   driver, never a process-wide global.
//
// File state transitions:
//   Pending (selected)
//      ↓ MarkRunning()
//   Running (subprocess in flight)
//      ↓ Record()
//   Passed / Failed
//
// Work items are produced once at startup, deduplicated by construction,
// and consumed exactly once; Record rejects unknown paths and double
// recording so a scheduling bug surfaces as an error instead of a skewed
// exit status.
//
// ============================================================================

package worklist

import (
	"errors"
	"sync"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrDuplicateFile means the same path was added twice.
	ErrDuplicateFile = errors.New("file already in worklist")
	// ErrUnknownFile means a state change referenced a path never added.
	ErrUnknownFile = errors.New("file not in worklist")
	// ErrNotRunning means a result arrived for a file not marked running.
	ErrNotRunning = errors.New("file not marked running")
)

// Worklist tracks the lifecycle of every selected file in one run.
type Worklist struct {
	mu       sync.RWMutex
	files    map[string]types.FileStatus
	order    []string            // insertion order, i.e. the sorted scheduling order
	failures []types.CheckResult // ordered failure records, append-only
}

// New returns an empty worklist.
func New() *Worklist {
	return &Worklist{
		files: make(map[string]types.FileStatus),
	}
}

// Add registers one pending file. Each candidate enters exactly once.
func (w *Worklist) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.files[path]; exists {
		return ErrDuplicateFile
	}
	w.files[path] = types.StatusPending
	w.order = append(w.order, path)
	return nil
}

// MarkRunning records that a worker claimed the file.
func (w *Worklist) MarkRunning(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	status, exists := w.files[path]
	if !exists {
		return ErrUnknownFile
	}
	if status != types.StatusPending {
		return errors.New("file not pending")
	}
	w.files[path] = types.StatusRunning
	return nil
}

// Record stores one invocation outcome. Failures (including timeouts) are
// appended to the ordered failure list.
func (w *Worklist) Record(result types.CheckResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	status, exists := w.files[result.Path]
	if !exists {
		return ErrUnknownFile
	}
	if status != types.StatusRunning {
		return ErrNotRunning
	}

	if result.Failed() {
		w.files[result.Path] = types.StatusFailed
		w.failures = append(w.failures, result)
	} else {
		w.files[result.Path] = types.StatusPassed
	}
	return nil
}

// Failures returns a copy of the ordered failure records.
func (w *Worklist) Failures() []types.CheckResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]types.CheckResult, len(w.failures))
	copy(out, w.failures)
	return out
}

// FailedPaths returns the distinct failing paths in failure order.
func (w *Worklist) FailedPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.failures))
	for _, f := range w.failures {
		paths = append(paths, f.Path)
	}
	return paths
}

// Files returns the scheduling-ordered path list.
func (w *Worklist) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Len returns the number of selected files.
func (w *Worklist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// Stats returns a per-state count snapshot.
func (w *Worklist) Stats() map[types.FileStatus]int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := map[types.FileStatus]int{
		types.StatusPending: 0,
		types.StatusRunning: 0,
		types.StatusPassed:  0,
		types.StatusFailed:  0,
	}
	for _, status := range w.files {
		stats[status]++
	}
	return stats
}

// Drained reports whether every file reached a terminal state.
func (w *Worklist) Drained() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, status := range w.files {
		if status == types.StatusPending || status == types.StatusRunning {
			return false
		}
	}
	return true
}
