// Package domainerrors defines the coded error type shared by all services.
//
// Services attach a Code to every error they surface; transport layers map
// codes to HTTP status codes with ToHTTPStatus. Stores do not use this
// package directly; they return pkg/platform/sentinel errors, which the
// owning service translates into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and transport layers.
type Code string

const (
	// CodeNotFound signals a lookup for an id that was never allocated.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidTwin signals a simulation request naming a twin id outside
	// the allocated range.
	CodeInvalidTwin Code = "INVALID_TWIN"
	// CodeDuplicateRequest signals registration of a request id that already
	// has an unresolved tracker entry.
	CodeDuplicateRequest Code = "DUPLICATE_REQUEST"
	// CodeUnknownRequest signals a callback for a request id with no pending
	// entry: late, duplicate, or forged.
	CodeUnknownRequest Code = "UNKNOWN_REQUEST"
	// CodeAlreadyRevealed signals a completion attempt against a twin whose
	// result was already revealed.
	CodeAlreadyRevealed Code = "ALREADY_REVEALED"
	// CodeInvalidProof signals a callback whose decryption proof failed
	// verification.
	CodeInvalidProof Code = "INVALID_PROOF"
	// CodeUnknownCategory signals a decryption request for a category that
	// was never observed by the aggregate counter.
	CodeUnknownCategory Code = "UNKNOWN_CATEGORY"

	CodeBadRequest         Code = "BAD_REQUEST"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeConflict           Code = "CONFLICT"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeTimeout            Code = "TIMEOUT"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// Error is a coded domain error. Message is safe to return to callers;
// wrapped causes are for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// GetCode extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status handlers respond with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound, CodeUnknownRequest, CodeUnknownCategory:
		return http.StatusNotFound
	case CodeInvalidTwin:
		return http.StatusUnprocessableEntity
	case CodeDuplicateRequest, CodeAlreadyRevealed, CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeBadRequest, CodeInvalidInput, CodeInvalidProof:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
