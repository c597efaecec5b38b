// ============================================================================
// tidy-runner Worker Pool - concurrent check executor
// ============================================================================
//
// Package: internal/runner
// File: pool.go
// Purpose: Manages the lifecycle of N worker goroutines and the bounded
// first-in-first-out task queue they share.
//
// Design:
//   Worker pool pattern with a fixed worker count decided at startup:
//   1. N worker goroutines run for the whole pool lifetime
//   2. tasks are distributed through one shared buffered channel
//   3. results come back through a shared result channel
//   4. workers are symmetric; any worker may take any item
//
// Lifecycle:
//   1. NewPool()  - create the pool and its channels
//   2. Start(n)   - launch n workers
//   3. Submit()   - push a task into the queue
//   4. ReceiveResult() - pull one result
//   5. Stop()     - close the queue, join every worker, close results
//
// Shutdown:
//   Stop() closes taskCh so the workers' range loops end after the items
//   already claimed, then joins them all through the WaitGroup before
//   closing resultCh. Workers are never abandoned: the process exits only
//   after every goroutine has returned.
//
// ============================================================================

package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrPoolClosed means the pool was stopped and accepts no more tasks.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolNotStarted means Submit was called before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// ============================================================================
// Data structures
// ============================================================================

// Pool owns the worker goroutines and the task/result channels.
type Pool struct {
	workers  []*worker
	taskCh   chan Task
	resultCh chan types.CheckResult
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopped  bool
	mu       sync.Mutex

	// OnClaim, when set before Start, is invoked by a worker the moment it
	// pops an item. Must be safe for concurrent calls.
	OnClaim func(path string)
}

// NewPool creates a pool whose task and result channels hold bufferSize
// items. Sizing the buffer to the work-list length lets the driver enqueue
// everything up front without blocking.
func NewPool(bufferSize int) *Pool {
	return &Pool{
		taskCh:   make(chan Task, bufferSize),
		resultCh: make(chan types.CheckResult, bufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches workerCount workers executing through exec. It errors if
// the pool was already started.
func (p *Pool) Start(ctx context.Context, workerCount int, exec Executor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}

	for i := 0; i < workerCount; i++ {
		w := newWorker(i, p.taskCh, p.resultCh, exec, p.OnClaim)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}

	p.started = true
	return nil
}

// Submit pushes one task into the queue. Safe against a concurrent Stop:
// the select observes stopCh before a send on the closed taskCh can happen.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	taskCh := p.taskCh
	stopCh := p.stopCh
	p.mu.Unlock()

	select {
	case taskCh <- task:
		return nil
	case <-stopCh:
		return ErrPoolClosed
	}
}

// ReceiveResult pulls one result, blocking until a worker reports or the
// pool shuts down.
func (p *Pool) ReceiveResult() (types.CheckResult, error) {
	result, ok := <-p.resultCh
	if !ok {
		return types.CheckResult{}, ErrPoolClosed
	}
	return result, nil
}

// Stop closes the queue, waits for every worker to finish its in-flight
// item, then closes the result channel.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	close(p.taskCh)

	p.wg.Wait()

	close(p.resultCh)
}

// WorkerCount returns how many workers were launched.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// IsStarted reports whether Start has run.
func (p *Pool) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}
