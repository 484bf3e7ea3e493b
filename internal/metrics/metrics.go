// Package metrics holds the Prometheus collectors for batch runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Pair outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
)

// Metrics is a set of collectors bound to its own registry. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	pairs       *prometheus.CounterVec
	rowsDropped *prometheus.CounterVec
	rowsMerged  prometheus.Counter
	runDuration prometheus.Summary
	lastSuccess prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merge_pairs_total",
			Help: "File pairs processed by the batch merge, by outcome",
		}, []string{"outcome", "reason"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merge_rows_dropped_total",
			Help: "Source rows dropped because a field could not be parsed",
		}, []string{"source"}),
		rowsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "merge_rows_written_total",
			Help: "Merged rows written to artifacts",
		}),
		runDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name: "merge_run_duration_seconds",
			Help: "Wall time of a batch merge run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "merge_last_run_success",
			Help: "1 if the last batch run merged at least one pair",
		}),
	}

	m.Registry.MustRegister(
		m.pairs, m.rowsDropped, m.rowsMerged, m.runDuration, m.lastSuccess,
		collectors.NewGoCollector(),
	)
	return m
}

// Pair records the outcome of one file pair. reason is empty on success.
func (m *Metrics) Pair(outcome, reason string) {
	if m == nil {
		return
	}
	m.pairs.WithLabelValues(outcome, reason).Inc()
}

// Dropped records rows dropped from a source.
func (m *Metrics) Dropped(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsDropped.WithLabelValues(source).Add(float64(n))
}

// Merged records rows written.
func (m *Metrics) Merged(n int) {
	if m == nil {
		return
	}
	m.rowsMerged.Add(float64(n))
}

// Run records a finished batch run.
func (m *Metrics) Run(seconds float64, ok bool) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
	if ok {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
}
