// Package oracle defines the boundary to the external confidential-computation
// library: the ciphertext-domain primitive set, the asynchronous decryption
// oracle, and the proof format attached to every decrypted result.
//
// The service never sees plaintext except through a verified oracle callback.
package oracle

import (
	"context"

	"velum/pkg/domain"
)

//go:generate mockgen -source=oracle.go -destination=mocks/mocks.go -package=mocks Engine,Oracle

// CallbackTarget names the entry point a decryption request resolves to.
// The oracle runtime routes its callback by target; the tracker separately
// guards against a callback reaching the wrong entry point.
type CallbackTarget string

const (
	// TargetSimulationResult routes to the coordinator's simulation-result
	// callback (fixed four-ciphertext payload).
	TargetSimulationResult CallbackTarget = "simulation-result"
	// TargetDecryptedCount routes to the aggregate counter's decrypted-count
	// callback (single counter ciphertext).
	TargetDecryptedCount CallbackTarget = "decrypted-count"
)

const (
	// SimulationPayloadSize is the fixed ciphertext count of a
	// simulation-result payload. Unused branches are zero-filled, never
	// omitted, so the shape leaks nothing about the request.
	SimulationPayloadSize = 4
	// CountPayloadSize is the ciphertext count of a decrypted-count payload.
	CountPayloadSize = 1
)

// Engine is the ciphertext-domain capability set. Implementations never
// expose plaintext; decryption happens only inside the oracle.
type Engine interface {
	// EncryptZero returns a fresh encryption of zero, used to zero-fill
	// unused payload branches and to initialize counters.
	EncryptZero() (domain.Ciphertext, error)
	// EncryptOne returns a fresh encryption of one, the blind-increment unit.
	EncryptOne() (domain.Ciphertext, error)
	// AddCiphertexts homomorphically adds two ciphertexts.
	AddCiphertexts(a, b domain.Ciphertext) (domain.Ciphertext, error)
	// IsInitialized reports whether the handle deserializes to a usable
	// ciphertext under the engine's parameters.
	IsInitialized(ct domain.Ciphertext) bool
}

// Oracle issues decryption requests and verifies the proofs attached to
// delivered results.
//
// IssueDecryptionRequest is asynchronous: the runtime invokes the named
// callback target later, out of band. The returned request id is the only
// correlation between the two halves.
type Oracle interface {
	IssueDecryptionRequest(ctx context.Context, payload []domain.Ciphertext, target CallbackTarget) (domain.RequestID, error)
	// VerifyProof returns nil only if proof attests that clearValues is the
	// correct decryption for the given request id.
	VerifyProof(ctx context.Context, requestID domain.RequestID, clearValues []string, proof []byte) error
}
