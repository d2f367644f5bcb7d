package middleware

import (
	"net/http"
	"strings"

	"velum/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the
// request and stores them in the context for handlers and audit emitters.
// Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(),
			clientIPFromRequest(r),
			r.Header.Get("User-Agent"),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func clientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" (or "[::1]:port" for IPv6); strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
