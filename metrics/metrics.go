// Package metrics exposes prometheus instrumentation for the extraction
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. A nil *Metrics is valid and records
// nothing, so callers never need to branch on whether metrics are enabled.
type Metrics struct {
	attempts        *prometheus.CounterVec
	escalations     prometheus.Counter
	budgetExhausted prometheus.Counter
	dishes          prometheus.Counter
	runDuration     prometheus.Histogram
}

// New registers the pipeline metrics on reg and returns them. Pass
// prometheus.DefaultRegisterer for the usual global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lunchpipe",
			Name:      "extraction_attempts_total",
			Help:      "Extraction attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunchpipe",
			Name:      "escalations_total",
			Help:      "Restaurants escalated from traditional to vision.",
		}),
		budgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunchpipe",
			Name:      "vision_budget_exhausted_total",
			Help:      "Restaurants refused vision because the budget was spent.",
		}),
		dishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunchpipe",
			Name:      "dishes_extracted_total",
			Help:      "Canonical menu items produced.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lunchpipe",
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
	}
	reg.MustRegister(m.attempts, m.escalations, m.budgetExhausted, m.dishes, m.runDuration)
	return m
}

// RecordAttempt counts one strategy attempt.
func (m *Metrics) RecordAttempt(strategy, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordEscalation counts one traditional→vision escalation.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.escalations.Inc()
}

// RecordBudgetExhausted counts one budget refusal.
func (m *Metrics) RecordBudgetExhausted() {
	if m == nil {
		return
	}
	m.budgetExhausted.Inc()
}

// RecordDishes counts produced menu items.
func (m *Metrics) RecordDishes(n int) {
	if m == nil {
		return
	}
	m.dishes.Add(float64(n))
}

// RecordRunDuration observes one completed run.
func (m *Metrics) RecordRunDuration(seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
}
