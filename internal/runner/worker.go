// ============================================================================
// tidy-runner Worker - check execution unit
// ============================================================================
//
// Package: internal/runner
// File: worker.go
// Purpose: One worker goroutine: pop a file path from the queue, run the
// external checker against it, report the result, repeat until the queue
// closes.
//
// States per worker: idle (blocked on the queue) -> running (subprocess in
// flight, bounded by the executor's hard timeout) -> idle. The per-worker
// fix-output path is fixed at construction so concurrent fix exports cannot
// collide.
//
// ============================================================================

package runner

import (
	"context"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// worker executes tasks from the shared queue.
type worker struct {
	id       int
	taskCh   <-chan Task
	resultCh chan<- types.CheckResult
	exec     Executor
	onClaim  func(path string)
}

func newWorker(id int, taskCh <-chan Task, resultCh chan<- types.CheckResult, exec Executor, onClaim func(string)) *worker {
	return &worker{
		id:       id,
		taskCh:   taskCh,
		resultCh: resultCh,
		exec:     exec,
		onClaim:  onClaim,
	}
}

// run is the worker main loop. It exits when the task channel closes or the
// run context is cancelled; every claimed task produces exactly one result
// so the driver's drain accounting always completes.
func (w *worker) run(ctx context.Context) {
	fixPath := w.exec.FixPath(w.id)

	for task := range w.taskCh {
		if w.onClaim != nil {
			w.onClaim(task.Path)
		}

		select {
		case <-ctx.Done():
			// Interrupted run: report the item as claimed-but-cancelled so
			// the drain count still completes.
			w.resultCh <- types.CheckResult{Path: task.Path, ExitCode: -1, Output: ctx.Err().Error() + "\n"}
			continue
		default:
		}

		result := w.exec.Run(ctx, task.Path, fixPath)
		w.resultCh <- result
	}
}
