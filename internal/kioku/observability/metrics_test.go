package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("kioku_test", reg)

	m.RecordTurn()
	m.RecordTurn()
	m.RecordSummary(false)
	m.RecordSummary(true)
	m.RecordMaintenanceFailure()
	m.RecordEvictions("summary", 3)
	m.RecordEvictions("archive", 0)

	if got := testutil.ToFloat64(m.TurnsRecorded); got != 2 {
		t.Errorf("turns_recorded_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SummariesCreated.WithLabelValues("llm")); got != 1 {
		t.Errorf("summaries_created_total{mode=llm} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SummariesCreated.WithLabelValues("fallback")); got != 1 {
		t.Errorf("summaries_created_total{mode=fallback} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MaintenanceFailures); got != 1 {
		t.Errorf("maintenance_failures_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TierEvictions.WithLabelValues("summary")); got != 3 {
		t.Errorf("tier_evictions_total{tier=summary} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.TierEvictions.WithLabelValues("archive")); got != 0 {
		t.Errorf("tier_evictions_total{tier=archive} = %v, want 0", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordTurn()
	m.RecordSummary(true)
	m.RecordMaintenanceFailure()
	m.RecordEvictions("summary", 5)
}
