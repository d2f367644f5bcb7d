package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"velum/pkg/requestcontext"
)

// CallbackVerifier checks the shared secret presented by the oracle runtime
// on callback endpoints.
type CallbackVerifier interface {
	VerifyCallbackSecret(secret string) error
}

// SecurityRecorder receives rejected callback-authentication attempts so
// they land in the security audit trail.
type SecurityRecorder interface {
	RecordRejectedCallback(ctx context.Context, reason string)
}

// RequireCallbackAuth guards the oracle callback surface. Ordinary callers
// never hold the callback secret, so anything failing here is either a
// misconfigured oracle or a spoofing attempt; both are recorded.
func RequireCallbackAuth(verifier CallbackVerifier, logger *slog.Logger, recorder SecurityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			secret, ok := bearerToken(r)
			if !ok {
				reject(ctx, w, logger, recorder, "missing callback credential")
				return
			}
			if err := verifier.VerifyCallbackSecret(secret); err != nil {
				reject(ctx, w, logger, recorder, "invalid callback credential")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, recorder SecurityRecorder, reason string) {
	logger.WarnContext(ctx, "callback rejected",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
	)
	if recorder != nil {
		recorder.RecordRejectedCallback(ctx, reason)
	}
	writeAuthError(w, http.StatusUnauthorized, reason)
}
