// Package models defines the pending-request entries owned by the tracker.
package models

import (
	"time"

	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

// RequestKind is the result type an issued oracle request expects.
type RequestKind string

const (
	// KindSimulation: the callback carries simulation result values for a twin.
	KindSimulation RequestKind = "simulation"
	// KindCount: the callback carries a decrypted category count.
	KindCount RequestKind = "count"
)

// CallbackTarget names the domain object a callback lands on. Exactly one
// field is set, matching the entry's kind.
type CallbackTarget struct {
	TwinID   id.TwinID
	Category id.Category
}

// PendingRequest is one unresolved oracle request. The tracker is the single
// authority translating an external request id back into a domain action;
// entries are consumed by the first matching resolution.
type PendingRequest struct {
	RequestID    id.RequestID
	Kind         RequestKind
	Target       CallbackTarget
	RegisteredAt time.Time
}

// NewPendingRequest validates the kind/target pairing and returns an entry.
func NewPendingRequest(requestID id.RequestID, kind RequestKind, target CallbackTarget, now time.Time) (PendingRequest, error) {
	if requestID.IsZero() {
		return PendingRequest{}, dErrors.New(dErrors.CodeInvariantViolation, "pending request requires a request id")
	}
	switch kind {
	case KindSimulation:
		if !target.TwinID.IsValid() {
			return PendingRequest{}, dErrors.New(dErrors.CodeInvariantViolation, "simulation entry requires a twin target")
		}
	case KindCount:
		if target.Category == "" {
			return PendingRequest{}, dErrors.New(dErrors.CodeInvariantViolation, "count entry requires a category target")
		}
	default:
		return PendingRequest{}, dErrors.New(dErrors.CodeInvariantViolation, "unknown request kind")
	}
	return PendingRequest{
		RequestID:    requestID,
		Kind:         kind,
		Target:       target,
		RegisteredAt: now,
	}, nil
}
