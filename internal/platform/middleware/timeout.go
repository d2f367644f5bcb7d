package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds each request's context. Handlers and services observe the
// deadline through ctx; slow backends surface as context errors rather than
// hung connections.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
