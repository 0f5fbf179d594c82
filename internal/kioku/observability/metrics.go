// Package observability groups the Prometheus instruments for the memory
// subsystem.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments incremented by the memory orchestrator.
// A nil *Metrics is valid and records nothing, so library code never has
// to check whether instrumentation is wired.
type Metrics struct {
	TurnsRecorded       prometheus.Counter
	SummariesCreated    *prometheus.CounterVec // label: mode = llm|fallback
	MaintenanceFailures prometheus.Counter
	TierEvictions       *prometheus.CounterVec // label: tier = summary|archive
}

// NewMetrics registers the instruments on reg (the default registerer when
// nil) under the given namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		TurnsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_recorded_total",
			Help:      "Turns appended to the active tier.",
		}),
		SummariesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_created_total",
			Help:      "Summaries persisted during compaction, by mode.",
		}, []string{"mode"}),
		MaintenanceFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_failures_total",
			Help:      "Tier maintenance runs that failed and were logged.",
		}),
		TierEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_evictions_total",
			Help:      "Records pruned from soft-capped tiers.",
		}, []string{"tier"}),
	}
}

// RecordTurn counts one appended turn.
func (m *Metrics) RecordTurn() {
	if m == nil {
		return
	}
	m.TurnsRecorded.Inc()
}

// RecordSummary counts one persisted summary.
func (m *Metrics) RecordSummary(fallback bool) {
	if m == nil {
		return
	}
	mode := "llm"
	if fallback {
		mode = "fallback"
	}
	m.SummariesCreated.WithLabelValues(mode).Inc()
}

// RecordMaintenanceFailure counts one failed maintenance run.
func (m *Metrics) RecordMaintenanceFailure() {
	if m == nil {
		return
	}
	m.MaintenanceFailures.Inc()
}

// RecordEvictions counts n pruned records in the named tier.
func (m *Metrics) RecordEvictions(tier string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TierEvictions.WithLabelValues(tier).Add(float64(n))
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
