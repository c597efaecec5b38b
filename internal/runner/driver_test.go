package runner

// ============================================================================
// Driver Test File
// Purpose: Verify drain accounting, failure aggregation, timeout recording,
// baseline suppression, exit-code mapping
// ============================================================================

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

func runDriver(t *testing.T, exec Executor, cfg DriverConfig) (types.RunSummary, string, *Driver) {
	t.Helper()
	var out bytes.Buffer
	cfg.Out = &out
	if cfg.Jobs == 0 {
		cfg.Jobs = 4
	}
	d, err := NewDriver(exec, cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	return summary, out.String(), d
}

func TestDriverAllPass(t *testing.T) {
	exec := newFakeExecutor()
	files := []string{"a.cpp", "b.cpp", "c.cpp"}

	summary, out, _ := runDriver(t, exec, DriverConfig{Files: files, Environment: "host"})

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "host", summary.Environment)
	assert.Empty(t, out)
	assert.Equal(t, 0, ExitCode(summary.Failed))
}

func TestDriverCountsDistinctFailures(t *testing.T) {
	exec := newFakeExecutor()
	exec.fail["b.cpp"] = true
	exec.fail["d.cpp"] = true
	files := []string{"a.cpp", "b.cpp", "c.cpp", "d.cpp"}

	summary, out, d := runDriver(t, exec, DriverConfig{Files: files})

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 2, ExitCode(summary.Failed))
	assert.ElementsMatch(t, []string{"b.cpp", "d.cpp"}, d.FailedPaths())
	assert.Contains(t, out, "FAILED b.cpp")
	assert.Contains(t, out, "FAILED d.cpp")
	assert.Contains(t, out, "warning: bad code")
}

func TestDriverTimeoutRecordedAsFailure(t *testing.T) {
	exec := newFakeExecutor()
	exec.slow["hang.cpp"] = true
	files := []string{"hang.cpp", "ok.cpp"}

	summary, out, _ := runDriver(t, exec, DriverConfig{Files: files})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.TimedOut)
	assert.Contains(t, out, "FAILED hang.cpp")
	assert.Contains(t, out, "timed out")
}

func TestDriverBaselineSuppression(t *testing.T) {
	exec := newFakeExecutor()
	exec.fail["known.cpp"] = true
	exec.fail["new.cpp"] = true
	files := []string{"known.cpp", "new.cpp", "ok.cpp"}

	summary, out, d := runDriver(t, exec, DriverConfig{
		Files:    files,
		Baseline: map[string]struct{}{"known.cpp": {}},
	})

	// Only the new failure counts toward the exit status, but both are
	// printed and both belong in an updated baseline.
	assert.Equal(t, 1, summary.Failed)
	assert.ElementsMatch(t, []string{"known.cpp", "new.cpp"}, d.FailedPaths())
	assert.Contains(t, out, "FAILED known.cpp (baselined, not counted)")
	assert.Contains(t, out, "FAILED new.cpp")
}

func TestDriverEmptyFileList(t *testing.T) {
	summary, _, _ := runDriver(t, newFakeExecutor(), DriverConfig{Files: nil})
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Failed)
}

func TestDriverDrainsLargeListWithFewWorkers(t *testing.T) {
	exec := newFakeExecutor()
	var files []string
	for i := 0; i < 150; i++ {
		files = append(files, fmt.Sprintf("f%03d.cpp", i))
		if i%3 == 0 {
			exec.fail[fmt.Sprintf("f%03d.cpp", i)] = true
		}
	}

	summary, _, _ := runDriver(t, exec, DriverConfig{Files: files, Jobs: 2})

	assert.Equal(t, 150, summary.Total)
	assert.Equal(t, 50, summary.Failed)
	assert.Equal(t, 100, summary.Passed)
	for _, f := range files {
		assert.Equal(t, 1, exec.runCount(f), "execution count for %s", f)
	}
}

func TestDriverRejectsDuplicateInput(t *testing.T) {
	_, err := NewDriver(newFakeExecutor(), DriverConfig{Files: []string{"a.cpp", "a.cpp"}})
	assert.Error(t, err)
}

// ============================================================================
// Exit Code Tests
// ============================================================================

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(0))
	assert.Equal(t, 3, ExitCode(3))
	assert.Equal(t, 255, ExitCode(255))
	assert.Equal(t, 255, ExitCode(256))
	assert.Equal(t, 255, ExitCode(10000))
}
