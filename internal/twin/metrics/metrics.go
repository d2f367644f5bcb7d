package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the twin module.
type Metrics struct {
	TwinsCreated   prometheus.Counter
	CreateDuration prometheus.Histogram
	GetDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all twin module metrics registered.
func New() *Metrics {
	return &Metrics{
		TwinsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_twins_created_total",
			Help: "Total number of twins created",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_twin_create_duration_seconds",
			Help:    "Duration of twin creation including ciphertext cloning",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GetDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_twin_get_duration_seconds",
			Help:    "Duration of twin and result lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementTwinCreated records a successful twin creation.
func (m *Metrics) IncrementTwinCreated() {
	if m != nil {
		m.TwinsCreated.Inc()
	}
}

// ObserveCreate records the duration of a CreateTwin operation.
func (m *Metrics) ObserveCreate(d time.Duration) {
	if m != nil {
		m.CreateDuration.Observe(d.Seconds())
	}
}

// ObserveGet records the duration of a lookup operation.
func (m *Metrics) ObserveGet(d time.Duration) {
	if m != nil {
		m.GetDuration.Observe(d.Seconds())
	}
}
