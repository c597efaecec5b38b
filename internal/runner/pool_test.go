package runner

// ============================================================================
// Worker Pool Test File
// Purpose: Verify concurrent execution, exactly-once delivery, graceful
// shutdown
// ============================================================================

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// fakeExecutor simulates the external checker.
type fakeExecutor struct {
	mu    sync.Mutex
	runs  map[string]int // how many times each path was executed
	fail  map[string]bool
	slow  map[string]bool
	delay time.Duration
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		runs: make(map[string]int),
		fail: make(map[string]bool),
		slow: make(map[string]bool),
	}
}

func (f *fakeExecutor) Run(ctx context.Context, file, fixPath string) types.CheckResult {
	f.mu.Lock()
	f.runs[file]++
	shouldFail := f.fail[file]
	shouldHang := f.slow[file]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if shouldHang {
		return types.CheckResult{Path: file, ExitCode: -1, TimedOut: true, Duration: 15 * time.Minute}
	}
	if shouldFail {
		return types.CheckResult{Path: file, ExitCode: 1, Output: "warning: bad code [checks]\n", Duration: time.Millisecond}
	}
	return types.CheckResult{Path: file, ExitCode: 0, Duration: time.Millisecond}
}

func (f *fakeExecutor) FixPath(workerID int) string { return "" }

func (f *fakeExecutor) runCount(file string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[file]
}

// ============================================================================
// Basic Functionality Tests
// ============================================================================

func TestNewPool(t *testing.T) {
	pool := NewPool(10)
	assert.NotNil(t, pool)
	assert.Equal(t, 0, pool.WorkerCount())
	assert.False(t, pool.IsStarted())
}

func TestPoolStart(t *testing.T) {
	pool := NewPool(10)

	err := pool.Start(context.Background(), 8, newFakeExecutor())
	require.NoError(t, err)
	assert.Equal(t, 8, pool.WorkerCount())
	assert.True(t, pool.IsStarted())

	// Starting twice is an error.
	err = pool.Start(context.Background(), 4, newFakeExecutor())
	assert.Error(t, err)

	pool.Stop()
}

func TestEveryItemExactlyOnce(t *testing.T) {
	const fileCount = 100
	exec := newFakeExecutor()
	pool := NewPool(fileCount)
	require.NoError(t, pool.Start(context.Background(), 8, exec))

	for i := 0; i < fileCount; i++ {
		require.NoError(t, pool.Submit(Task{Path: fmt.Sprintf("f%03d.cpp", i)}))
	}

	seen := make(map[string]int)
	for i := 0; i < fileCount; i++ {
		result, err := pool.ReceiveResult()
		require.NoError(t, err)
		seen[result.Path]++
	}

	// No item lost, none double-processed.
	assert.Len(t, seen, fileCount)
	for path, n := range seen {
		assert.Equal(t, 1, n, "result count for %s", path)
		assert.Equal(t, 1, exec.runCount(path), "execution count for %s", path)
	}

	pool.Stop()
}

func TestSingleWorkerDrainsQueue(t *testing.T) {
	exec := newFakeExecutor()
	pool := NewPool(20)
	require.NoError(t, pool.Start(context.Background(), 1, exec))

	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(Task{Path: fmt.Sprintf("f%d.cpp", i)}))
	}
	for i := 0; i < 20; i++ {
		_, err := pool.ReceiveResult()
		require.NoError(t, err)
	}
	pool.Stop()
}

func TestOnClaimHook(t *testing.T) {
	exec := newFakeExecutor()
	pool := NewPool(10)

	var mu sync.Mutex
	claimed := make(map[string]int)
	pool.OnClaim = func(path string) {
		mu.Lock()
		claimed[path]++
		mu.Unlock()
	}

	require.NoError(t, pool.Start(context.Background(), 4, exec))
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(Task{Path: fmt.Sprintf("f%d.cpp", i)}))
	}
	for i := 0; i < 10; i++ {
		_, err := pool.ReceiveResult()
		require.NoError(t, err)
	}
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, claimed, 10)
	for path, n := range claimed {
		assert.Equal(t, 1, n, "claim count for %s", path)
	}
}

// ============================================================================
// Error Handling Tests
// ============================================================================

func TestSubmitBeforeStart(t *testing.T) {
	pool := NewPool(10)
	err := pool.Submit(Task{Path: "a.cpp"})
	assert.ErrorIs(t, err, ErrPoolNotStarted)
}

func TestSubmitAfterStop(t *testing.T) {
	pool := NewPool(10)
	require.NoError(t, pool.Start(context.Background(), 2, newFakeExecutor()))
	pool.Stop()

	err := pool.Submit(Task{Path: "a.cpp"})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestReceiveResultAfterStop(t *testing.T) {
	pool := NewPool(10)
	require.NoError(t, pool.Start(context.Background(), 2, newFakeExecutor()))
	pool.Stop()

	_, err := pool.ReceiveResult()
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestStopBeforeStart(t *testing.T) {
	pool := NewPool(10)
	assert.NotPanics(t, func() { pool.Stop() })
}

func TestStopIdempotent(t *testing.T) {
	pool := NewPool(10)
	require.NoError(t, pool.Start(context.Background(), 2, newFakeExecutor()))
	pool.Stop()
	assert.NotPanics(t, func() { pool.Stop() })
}
