package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"velum/pkg/requestcontext"
)

// JWTValidator validates operator bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims carries the claims this service consumes from a validated token.
type JWTClaims struct {
	Subject string
	Role    string
}

// RoleAdmin marks tokens allowed onto the admin surface.
const RoleAdmin = "admin"

// RequireAuth rejects requests without a valid bearer token and stores the
// operator subject in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx = requestcontext.WithOperatorID(ctx, claims.Subject)
			ctx = withRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated requests whose token lacks the admin
// role. Must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if roleFrom(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"operator", requestcontext.OperatorID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func writeAuthError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + http.StatusText(status) + `","error_description":"` + description + `"}`))
}
