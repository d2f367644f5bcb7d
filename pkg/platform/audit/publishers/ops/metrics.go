package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for ops audit tracking.
type Metrics struct {
	Tracked               prometheus.Counter
	Sampled               prometheus.Counter
	QueueDropped          prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	PersistFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with ops audit metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Tracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_ops_tracked_total",
			Help: "Total number of operational audit events successfully tracked",
		}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_ops_sampled_total",
			Help: "Total number of operational audit events dropped due to sampling",
		}),
		QueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_ops_queue_dropped_total",
			Help: "Total number of operational audit events dropped due to a full queue",
		}),
		CircuitBreakerDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_ops_circuit_breaker_dropped_total",
			Help: "Total number of operational audit events dropped due to circuit breaker",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_audit_ops_persist_failures_total",
			Help: "Total number of operational audit event persistence failures",
		}),
		CircuitBreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "velum_audit_ops_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

// IncTracked increments the tracked counter.
func (m *Metrics) IncTracked() {
	if m != nil {
		m.Tracked.Inc()
	}
}

// IncSampled increments the sampled counter.
func (m *Metrics) IncSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

// IncQueueDropped increments the queue dropped counter.
func (m *Metrics) IncQueueDropped() {
	if m != nil {
		m.QueueDropped.Inc()
	}
}

// IncCircuitBreakerDropped increments the circuit breaker dropped counter.
func (m *Metrics) IncCircuitBreakerDropped() {
	if m != nil {
		m.CircuitBreakerDropped.Inc()
	}
}

// IncPersistFailures increments the persist failures counter.
func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

// SetCircuitBreakerState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
