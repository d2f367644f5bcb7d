package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the aggregate module.
type Metrics struct {
	Increments         prometheus.Counter
	IncrementDuration  prometheus.Histogram
	DecryptionRequests prometheus.Counter
	SnapshotsApplied   prometheus.Counter
	KnownCategories    prometheus.Gauge
}

// New creates a new Metrics instance with all aggregate metrics registered.
func New() *Metrics {
	return &Metrics{
		Increments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_aggregate_increments_total",
			Help: "Total blind increments applied to category counters",
		}),
		IncrementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velum_aggregate_increment_duration_seconds",
			Help:    "Duration of one blind increment including homomorphic addition",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		DecryptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_aggregate_decryption_requests_total",
			Help: "Total count decryption requests issued to the oracle",
		}),
		SnapshotsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velum_aggregate_snapshots_applied_total",
			Help: "Total decrypted count snapshots applied",
		}),
		KnownCategories: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "velum_aggregate_known_categories",
			Help: "Number of categories observed by the counter",
		}),
	}
}

// IncrementApplied records one blind increment and its duration.
func (m *Metrics) IncrementApplied(d time.Duration) {
	if m != nil {
		m.Increments.Inc()
		m.IncrementDuration.Observe(d.Seconds())
	}
}

// IncrementDecryptionRequested records an issued decryption request.
func (m *Metrics) IncrementDecryptionRequested() {
	if m != nil {
		m.DecryptionRequests.Inc()
	}
}

// IncrementSnapshotApplied records an applied snapshot.
func (m *Metrics) IncrementSnapshotApplied() {
	if m != nil {
		m.SnapshotsApplied.Inc()
	}
}

// SetKnownCategories records the observed category population.
func (m *Metrics) SetKnownCategories(n int) {
	if m != nil {
		m.KnownCategories.Set(float64(n))
	}
}
