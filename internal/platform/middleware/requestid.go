package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"velum/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a correlation id, honoring one supplied by
// the caller, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
