// ============================================================================
// tidy-runner Driver - run coordinator
// ============================================================================
//
// Package: internal/runner
// File: driver.go
// Purpose: Coordinates one whole run: seed the worklist, start the pool,
// enqueue every file, collect every result, and report the aggregate.
//
// Data flow:
//   file list -> bounded queue -> N worker loops -> each worker pops a path,
//   runs the checker, reports the result -> the driver records it, prints
//   failures at the moment of detection under the console lock, and feeds
//   the journal and the gauges -> once every item is both dequeued and
//   recorded the pool is stopped and the summary computed.
//
// Ordering: the input list is sorted by the selection pipeline, so
// *scheduling* order is deterministic; completion order is whatever the
// workers race to. No retries: a failing invocation is recorded once.
//
// Termination: Run returns only after the queue is fully drained and
// Pool.Stop has joined every worker. An interrupt bypasses this path
// entirely (the CLI tears the process group down).
//
// ============================================================================

package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/ChuLiYu/tidy-runner/internal/metrics"
	"github.com/ChuLiYu/tidy-runner/internal/report"
	"github.com/ChuLiYu/tidy-runner/internal/worklist"
	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

var log = slog.Default()

// DriverConfig wires one run.
type DriverConfig struct {
	Jobs        int                 // worker count, <=0 means host CPU count
	Files       []string            // sorted, deduplicated work list
	Environment string              // profile name, for the summary/journal
	Metrics     *metrics.Collector  // optional
	Report      *report.Writer      // optional
	Baseline    map[string]struct{} // known failures to suppress, may be nil
	Out         io.Writer           // console, defaults to os.Stdout
}

// Driver executes one run.
type Driver struct {
	cfg  DriverConfig
	exec Executor
	list *worklist.Worklist
	pool *Pool

	mu         sync.Mutex // guards console output
	suppressed int        // failures present in the baseline
}

// NewDriver builds a driver over the given executor and work list.
func NewDriver(exec Executor, cfg DriverConfig) (*Driver, error) {
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	list := worklist.New()
	for _, f := range cfg.Files {
		if err := list.Add(f); err != nil {
			return nil, fmt.Errorf("failed to seed worklist with %s: %w", f, err)
		}
	}

	return &Driver{cfg: cfg, exec: exec, list: list}, nil
}

// Run drives the whole pool to completion and returns the run summary.
// Summary.Failed excludes baselined failures; the caller derives the exit
// status from it.
func (d *Driver) Run(ctx context.Context) (types.RunSummary, error) {
	start := time.Now()
	files := d.list.Files()

	summary := types.RunSummary{
		Environment: d.cfg.Environment,
		Total:       len(files),
		StartedAt:   start.UnixMilli(),
	}
	if len(files) == 0 {
		return summary, nil
	}

	if d.cfg.Metrics != nil {
		d.cfg.Metrics.SetPending(len(files))
	}

	// Buffer both channels to the work-list length: the dispatcher can then
	// enqueue everything without blocking and join on the result count.
	d.pool = NewPool(len(files))
	d.pool.OnClaim = d.claimed

	if err := d.pool.Start(ctx, d.cfg.Jobs, d.exec); err != nil {
		return summary, fmt.Errorf("failed to start worker pool: %w", err)
	}

	log.Info("Run started",
		"files", len(files),
		"workers", d.cfg.Jobs,
		"environment", d.cfg.Environment)

	var resultWg sync.WaitGroup
	resultWg.Add(1)
	go func() {
		defer resultWg.Done()
		for i := 0; i < len(files); i++ {
			result, err := d.pool.ReceiveResult()
			if err != nil {
				return
			}
			d.handleResult(result)
		}
	}()

	for _, f := range files {
		if err := d.pool.Submit(Task{Path: f}); err != nil {
			log.Error("Failed to submit file", "path", f, "error", err)
		}
	}

	// Drain: every item dequeued and recorded exactly once.
	resultWg.Wait()

	// Join every worker before returning; nothing is left running.
	d.pool.Stop()

	stats := d.list.Stats()
	failures := d.list.Failures()

	summary.Passed = stats[types.StatusPassed]
	summary.Failed = len(failures) - d.suppressed
	for _, f := range failures {
		if f.TimedOut {
			summary.TimedOut++
		}
	}
	summary.Duration = time.Since(start)

	log.Info("Run finished",
		"passed", summary.Passed,
		"failed", summary.Failed,
		"suppressed", d.suppressed,
		"timed_out", summary.TimedOut,
		"duration", summary.Duration)

	return summary, nil
}

// claimed runs on a worker goroutine the moment it pops an item.
func (d *Driver) claimed(path string) {
	if err := d.list.MarkRunning(path); err != nil {
		log.Error("Failed to mark running", "path", path, "error", err)
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordClaim()
	}
}

// handleResult records one invocation outcome. Runs on the single
// result-loop goroutine; only console printing needs the lock.
func (d *Driver) handleResult(result types.CheckResult) {
	if err := d.list.Record(result); err != nil {
		log.Error("Failed to record result", "path", result.Path, "error", err)
		return
	}

	if d.cfg.Report != nil {
		if err := d.cfg.Report.Append(result); err != nil {
			log.Error("Failed to append report record", "path", result.Path, "error", err)
		}
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordResult(result.Failed(), result.TimedOut, result.Duration.Seconds())
	}

	if !result.Failed() {
		return
	}

	_, known := d.cfg.Baseline[result.Path]
	if known {
		d.suppressed++
	}
	d.printFailure(result, known)
}

// printFailure emits the path and captured output at the moment of
// detection, under the shared console lock so racing workers' reports never
// interleave.
func (d *Driver) printFailure(result types.CheckResult, baselined bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case result.TimedOut:
		fmt.Fprintf(d.cfg.Out, "FAILED %s (timed out after %s)\n", result.Path, result.Duration.Round(time.Second))
	case baselined:
		fmt.Fprintf(d.cfg.Out, "FAILED %s (baselined, not counted)\n", result.Path)
	default:
		fmt.Fprintf(d.cfg.Out, "FAILED %s (exit %d)\n", result.Path, result.ExitCode)
	}
	if result.Output != "" {
		fmt.Fprint(d.cfg.Out, result.Output)
		if result.Output[len(result.Output)-1] != '\n' {
			fmt.Fprintln(d.cfg.Out)
		}
	}
}

// FailedPaths returns every failing path of the finished run, baselined or
// not; --update-baseline persists exactly this set.
func (d *Driver) FailedPaths() []string {
	return d.list.FailedPaths()
}

// ExitCode maps a failure count to the process exit status: the count
// itself, capped so it survives the platform's 8-bit truncation.
func ExitCode(failed int) int {
	if failed > 255 {
		return 255
	}
	return failed
}
