package middleware

import (
	"net/http"
	"time"

	"velum/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request so every
// operation within it shares the same "now": domain timestamps, audit events,
// and sweep age checks stay consistent.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
