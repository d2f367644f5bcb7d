package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the result coordinator.
type Metrics struct {
	// Simulation requests by kind
	SimulationsRequested *prometheus.CounterVec

	// Callback applications by outcome
	CallbacksProcessed *prometheus.CounterVec

	// Request issuance latency including payload capture
	RequestDuration prometheus.Histogram

	// Callback latency from resolution through reveal
	CallbackDuration prometheus.Histogram
}

// New creates a new Metrics instance with all coordinator metrics registered.
func New() *Metrics {
	return &Metrics{
		SimulationsRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "velum_coordinator_simulations_requested_total",
			Help: "Total simulation requests issued to the oracle by kind",
		}, []string{"kind"}), // kind: "drug", "surgery"

		CallbacksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "velum_coordinator_callbacks_total",
			Help: "Total simulation callbacks by outcome",
		}, []string{"outcome"}), // outcome: "revealed", "unknown_request", "already_revealed", "invalid_proof", "error"

		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_coordinator_request_duration_seconds",
			Help:    "Duration of simulation request issuance including payload capture",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CallbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_coordinator_callback_duration_seconds",
			Help:    "Duration of simulation callback processing through reveal",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementRequested records an issued simulation request.
func (m *Metrics) IncrementRequested(kind string) {
	if m != nil {
		m.SimulationsRequested.WithLabelValues(kind).Inc()
	}
}

// IncrementCallback records a processed callback outcome.
func (m *Metrics) IncrementCallback(outcome string) {
	if m != nil {
		m.CallbacksProcessed.WithLabelValues(outcome).Inc()
	}
}

// ObserveRequest records the duration of a request issuance.
func (m *Metrics) ObserveRequest(d time.Duration) {
	if m != nil {
		m.RequestDuration.Observe(d.Seconds())
	}
}

// ObserveCallback records the duration of a callback application.
func (m *Metrics) ObserveCallback(d time.Duration) {
	if m != nil {
		m.CallbackDuration.Observe(d.Seconds())
	}
}
