package clinical

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for clinical audit persistence.
type Metrics struct {
	EventsEmitted   prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with clinical audit metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_clinical_events_total",
			Help: "Total number of clinical audit events persisted",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_clinical_persist_failures_total",
			Help: "Total number of clinical audit persistence failures",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_audit_clinical_persist_duration_seconds",
			Help:    "Duration of synchronous clinical audit writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncEventsEmitted increments the emitted counter.
func (m *Metrics) IncEventsEmitted() {
	if m != nil {
		m.EventsEmitted.Inc()
	}
}

// IncPersistFailures increments the persist failures counter.
func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

// ObservePersistDuration records a synchronous write duration.
func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m != nil {
		m.PersistDuration.Observe(seconds)
	}
}
