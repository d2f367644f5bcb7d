// Package httputil holds the response envelope and request decoding shared
// by all HTTP handlers. Error bodies follow the error/error_description
// shape; internal errors omit the description so store and broker details
// never reach callers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	dErrors "velum/pkg/domain-errors"
)

// Validatable is implemented by request body types that normalize and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's domain code to an HTTP status and writes the error
// envelope. Uncoded errors are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)

	body := map[string]string{"error": wireCode(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// wireCode lowers a domain code to its wire spelling.
func wireCode(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return strings.ToLower(string(code))
}

// DecodeAndPrepare decodes the request body into T and runs its Validate
// hook. On failure it writes the error response and returns ok=false; the
// caller just returns.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}

	if err := PT(&req).Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, err)
		return req, false
	}

	return req, true
}
