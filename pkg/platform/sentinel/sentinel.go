package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so owning services can translate them into coded domain errors.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a record with the same key already exists
// - ErrAlreadyUsed: single-use entry (pending request) already consumed
// - ErrInvalidState: record in the wrong state for the requested mutation
// - ErrUnavailable: backing resource temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
