package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	m := New()

	m.Pair(OutcomeSuccess, "")
	m.Pair(OutcomeSkipped, "empty_source")
	m.Pair(OutcomeSkipped, "empty_source")
	m.Dropped("transport", 3)
	m.Dropped("weather", 0)
	m.Merged(42)
	m.Run(1.5, true)

	if got := testutil.ToFloat64(m.pairs.WithLabelValues(OutcomeSkipped, "empty_source")); got != 2 {
		t.Errorf("skipped pairs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rowsDropped.WithLabelValues("transport")); got != 3 {
		t.Errorf("dropped transport rows = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.rowsMerged); got != 42 {
		t.Errorf("merged rows = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess); got != 1 {
		t.Errorf("last run success = %v, want 1", got)
	}

	m.Run(0.2, false)
	if got := testutil.ToFloat64(m.lastSuccess); got != 0 {
		t.Errorf("last run success = %v, want 0", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Pair(OutcomeSuccess, "")
	m.Dropped("weather", 1)
	m.Merged(1)
	m.Run(1, true)
}
