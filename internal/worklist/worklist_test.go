package worklist

// ============================================================================
// Worklist Test File
// Purpose: Verify state transitions, failure ordering, concurrent recording
// ============================================================================

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

func TestAddDuplicate(t *testing.T) {
	w := New()
	require.NoError(t, w.Add("a.cpp"))
	assert.ErrorIs(t, w.Add("a.cpp"), ErrDuplicateFile)
	assert.Equal(t, 1, w.Len())
}

func TestLifecycle(t *testing.T) {
	w := New()
	require.NoError(t, w.Add("a.cpp"))
	require.NoError(t, w.Add("b.cpp"))

	require.NoError(t, w.MarkRunning("a.cpp"))
	require.NoError(t, w.Record(types.CheckResult{Path: "a.cpp", ExitCode: 0}))

	require.NoError(t, w.MarkRunning("b.cpp"))
	require.NoError(t, w.Record(types.CheckResult{Path: "b.cpp", ExitCode: 1}))

	stats := w.Stats()
	assert.Equal(t, 1, stats[types.StatusPassed])
	assert.Equal(t, 1, stats[types.StatusFailed])
	assert.True(t, w.Drained())
	assert.Equal(t, []string{"b.cpp"}, w.FailedPaths())
}

func TestRecordUnknownFile(t *testing.T) {
	w := New()
	err := w.Record(types.CheckResult{Path: "ghost.cpp", ExitCode: 1})
	assert.ErrorIs(t, err, ErrUnknownFile)
}

func TestRecordRequiresRunning(t *testing.T) {
	w := New()
	require.NoError(t, w.Add("a.cpp"))
	assert.ErrorIs(t, w.Record(types.CheckResult{Path: "a.cpp"}), ErrNotRunning)
}

func TestDoubleRecordRejected(t *testing.T) {
	w := New()
	require.NoError(t, w.Add("a.cpp"))
	require.NoError(t, w.MarkRunning("a.cpp"))
	require.NoError(t, w.Record(types.CheckResult{Path: "a.cpp", ExitCode: 1}))

	// A second result for the same file must not inflate the failure count.
	assert.Error(t, w.Record(types.CheckResult{Path: "a.cpp", ExitCode: 1}))
	assert.Len(t, w.Failures(), 1)
}

func TestTimeoutCountsAsFailure(t *testing.T) {
	w := New()
	require.NoError(t, w.Add("slow.cpp"))
	require.NoError(t, w.MarkRunning("slow.cpp"))
	require.NoError(t, w.Record(types.CheckResult{Path: "slow.cpp", ExitCode: -1, TimedOut: true}))

	failures := w.Failures()
	require.Len(t, failures, 1)
	assert.True(t, failures[0].TimedOut)
	assert.Equal(t, 1, w.Stats()[types.StatusFailed])
}

func TestSchedulingOrderPreserved(t *testing.T) {
	w := New()
	files := []string{"a.cpp", "b.cpp", "c.cpp"}
	for _, f := range files {
		require.NoError(t, w.Add(f))
	}
	assert.Equal(t, files, w.Files())
}

func TestConcurrentRecording(t *testing.T) {
	w := New()
	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, w.Add(fmt.Sprintf("f%03d.cpp", i)))
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("f%03d.cpp", i)
			assert.NoError(t, w.MarkRunning(path))
			assert.NoError(t, w.Record(types.CheckResult{Path: path, ExitCode: i % 2}))
		}(i)
	}
	wg.Wait()

	assert.True(t, w.Drained())
	stats := w.Stats()
	assert.Equal(t, n/2, stats[types.StatusPassed])
	assert.Equal(t, n/2, stats[types.StatusFailed])
	assert.Len(t, w.Failures(), n/2)
}
