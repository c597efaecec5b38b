// ============================================================================
// tidy-runner Metrics - Prometheus instrumentation
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose run metrics. Long runs over large codebases
// take tens of minutes; the /metrics endpoint lets the CI fleet scrape
// progress and duration distributions while a run is in flight.
//
// Metric classes:
//   Counters  - files_checked_total, files_failed_total, files_timed_out_total
//   Histogram - check_duration_seconds (per-invocation wall time)
//   Gauges    - files_pending, checks_in_flight
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the run's Prometheus instruments.
type Collector struct {
	filesChecked  prometheus.Counter
	filesFailed   prometheus.Counter
	filesTimedOut prometheus.Counter

	checkDuration prometheus.Histogram

	filesPending   prometheus.Gauge
	checksInFlight prometheus.Gauge
}

// NewCollector creates and registers the instruments. Pass nil to register
// on the default registry; tests pass their own.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		filesChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidyrun_files_checked_total",
			Help: "Total number of files the checker was invoked on",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidyrun_files_failed_total",
			Help: "Total number of files the checker reported failures for",
		}),
		filesTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidyrun_files_timed_out_total",
			Help: "Total number of invocations killed by the hard timeout",
		}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tidyrun_check_duration_seconds",
			Help:    "Per-file checker invocation wall time in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}),
		filesPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidyrun_files_pending",
			Help: "Files selected but not yet claimed by a worker",
		}),
		checksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidyrun_checks_in_flight",
			Help: "Checker subprocesses currently running",
		}),
	}

	reg.MustRegister(
		c.filesChecked,
		c.filesFailed,
		c.filesTimedOut,
		c.checkDuration,
		c.filesPending,
		c.checksInFlight,
	)

	return c
}

// SetPending seeds the pending gauge with the selected file count.
func (c *Collector) SetPending(n int) {
	c.filesPending.Set(float64(n))
}

// RecordClaim moves one file from pending to in flight.
func (c *Collector) RecordClaim() {
	c.filesPending.Dec()
	c.checksInFlight.Inc()
}

// RecordResult accounts one finished invocation.
func (c *Collector) RecordResult(failed, timedOut bool, seconds float64) {
	c.checksInFlight.Dec()
	c.filesChecked.Inc()
	c.checkDuration.Observe(seconds)
	if failed {
		c.filesFailed.Inc()
	}
	if timedOut {
		c.filesTimedOut.Inc()
	}
}

// StartServer serves /metrics from the default registry. Run it in its own
// goroutine; it blocks for the process lifetime.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
