package runner

import (
	"context"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// Task is one unit of work: a single candidate file path. Items are produced
// once at startup and consumed exactly once by exactly one worker.
type Task struct {
	Path string
}

// Executor runs the external checker once per file. Implemented by
// *checker.Checker; faked in tests.
type Executor interface {
	// Run invokes the checker against file, exporting fixes to fixPath when
	// non-empty. All failure modes fold into the result.
	Run(ctx context.Context, file, fixPath string) types.CheckResult

	// FixPath returns the worker-private fix-output file, "" outside fix mode.
	FixPath(workerID int) string
}
