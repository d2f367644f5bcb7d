package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides process-level HTTP observability. Module-specific metrics
// live in each module's own metrics package.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a Metrics instance with all process-level metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "velum_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method", "status"}),

		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "velum_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.RequestsInFlight.Inc()
	return m.RequestsInFlight.Dec
}

// Handler exposes the default registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
