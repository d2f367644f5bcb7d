package testutil

import (
	"net/http"
	"time"

	"velum/pkg/requestcontext"
)

// WithOperator adds an operator subject to the request context, simulating
// what RequireAuth would do for an authenticated request.
func WithOperator(req *http.Request, operator string) *http.Request {
	ctx := requestcontext.WithOperatorID(req.Context(), operator)
	return req.WithContext(ctx)
}

// WithRequestID adds an HTTP correlation id to the request context,
// simulating the RequestID middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithFixedTime pins the request-scoped clock, simulating the RequestTime
// middleware with a deterministic value.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}

// WithClientMetadata adds client IP and User-Agent, simulating the
// ClientMetadata middleware.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, userAgent)
	return req.WithContext(ctx)
}
