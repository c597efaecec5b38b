// Package types defines the core domain model shared across tidy-runner.
package types

import (
	"time"
)

// FileStatus tracks where a candidate file is in its check lifecycle.
type FileStatus string

// File lifecycle states.
const (
	StatusPending FileStatus = "pending" // selected but not yet claimed by a worker
	StatusRunning FileStatus = "running" // checker subprocess in flight
	StatusPassed  FileStatus = "passed"  // checker exited zero
	StatusFailed  FileStatus = "failed"  // checker exited non-zero or timed out
)

// CheckResult is the outcome of one checker invocation against one file.
type CheckResult struct {
	Path     string        `json:"path"`                // file the checker was pointed at
	ExitCode int           `json:"exit_code"`           // raw subprocess exit code (-1 on timeout)
	Output   string        `json:"output,omitempty"`    // combined stdout+stderr, size-capped
	TimedOut bool          `json:"timed_out,omitempty"` // hard per-invocation timeout hit
	Duration time.Duration `json:"duration"`            // wall time of the invocation
}

// Failed reports whether the result counts toward the run's exit status.
// A timed-out invocation is an explicit failure: a hung file must not pass CI.
func (r CheckResult) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}

// RunSummary aggregates a whole run for reporting and the status command.
type RunSummary struct {
	Environment string        `json:"environment"` // build-metadata profile used
	Total       int           `json:"total"`       // files selected
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"` // distinct failing files, incl. timeouts
	TimedOut    int           `json:"timed_out"`
	Duration    time.Duration `json:"duration"`
	StartedAt   int64         `json:"started_at"` // Unix milliseconds
}
