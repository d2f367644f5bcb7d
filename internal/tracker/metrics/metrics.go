package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tracker module.
type Metrics struct {
	Pending            prometheus.Gauge
	Registered         prometheus.Counter
	Resolved           prometheus.Counter
	UnknownResolutions prometheus.Counter
	Swept              prometheus.Counter
}

// New creates a new Metrics instance with all tracker metrics registered.
func New() *Metrics {
	return &Metrics{
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "velum_tracker_pending",
			Help: "Current number of unresolved oracle requests",
		}),
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_tracker_registered_total",
			Help: "Total pending entries registered",
		}),
		Resolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_tracker_resolved_total",
			Help: "Total pending entries consumed by callbacks",
		}),
		UnknownResolutions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_tracker_unknown_resolutions_total",
			Help: "Resolutions against unknown request ids, late or forged",
		}),
		Swept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_tracker_swept_total",
			Help: "Total pending entries retired by sweeps",
		}),
	}
}

// SetPending records the current pending population.
func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.Registered.Inc()
	}
}

// IncrementResolved records a consumed entry.
func (m *Metrics) IncrementResolved() {
	if m != nil {
		m.Resolved.Inc()
	}
}

// IncrementUnknownResolution records a resolution miss.
func (m *Metrics) IncrementUnknownResolution() {
	if m != nil {
		m.UnknownResolutions.Inc()
	}
}

// AddSwept records entries retired by a sweep.
func (m *Metrics) AddSwept(n int) {
	if m != nil {
		m.Swept.Add(float64(n))
	}
}
