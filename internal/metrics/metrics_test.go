package metrics

// ============================================================================
// Metrics Test File
// Purpose: Verify instrument registration and the claim/result accounting
// ============================================================================

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	// Registering the same names twice must panic via MustRegister.
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestPendingAndInFlightAccounting(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.SetPending(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.filesPending))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.checksInFlight))

	c.RecordClaim()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.filesPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checksInFlight))

	c.RecordResult(false, false, 1.5)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.checksInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.filesChecked))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.filesFailed))
}

func TestResultClassCounters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.SetPending(3)

	c.RecordClaim()
	c.RecordResult(false, false, 1)

	c.RecordClaim()
	c.RecordResult(true, false, 2)

	c.RecordClaim()
	c.RecordResult(true, true, 900)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.filesChecked))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.filesFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.filesTimedOut))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.filesPending))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.checksInFlight))
}

func TestDurationHistogramObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordResult(false, false, 0.5)
	c.RecordResult(false, false, 42)

	count := testutil.CollectAndCount(reg, "tidyrun_check_duration_seconds")
	assert.Equal(t, 1, count, "histogram metric family should be collectable")
}
