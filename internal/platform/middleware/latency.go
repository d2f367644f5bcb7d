package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"velum/internal/platform/metrics"
)

// Latency records per-route duration and in-flight gauges. Routes are
// labeled by chi pattern, not raw path, to keep cardinality bounded.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.TrackInFlight()
			defer done()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		})
	}
}
