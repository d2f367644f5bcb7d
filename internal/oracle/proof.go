package oracle

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
)

// proofDomain separates these signatures from any other ed25519 use of the
// same key material.
const proofDomain = "velum.oracle.proof.v1"

// proofDigest canonicalizes (requestID, clearValues) into the signed hash.
// Lengths are encoded so no two distinct value lists share a digest.
func proofDigest(requestID domain.RequestID, clearValues []string) []byte {
	h := sha256.New()
	h.Write([]byte(proofDomain))
	h.Write([]byte{0})
	h.Write([]byte(requestID))
	h.Write([]byte{0})

	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(clearValues)))
	h.Write(buf[:n])
	for _, v := range clearValues {
		n = binary.PutUvarint(buf[:], uint64(len(v)))
		h.Write(buf[:n])
		h.Write([]byte(v))
	}
	return h.Sum(nil)
}

// Signer produces decryption proofs. Only the oracle runtime holds one.
type Signer struct {
	priv ed25519.PrivateKey
}

// Verifier checks decryption proofs against the oracle's public key.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewProofKeyPair generates a signer/verifier pair for one oracle runtime.
func NewProofKeyPair() (*Signer, *Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate proof key pair: %w", err)
	}
	return &Signer{priv: priv}, &Verifier{pub: pub}, nil
}

// NewVerifier wraps an externally distributed oracle public key.
func NewVerifier(pub ed25519.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// Sign attests that clearValues is the decryption for requestID.
func (s *Signer) Sign(requestID domain.RequestID, clearValues []string) []byte {
	return ed25519.Sign(s.priv, proofDigest(requestID, clearValues))
}

// Verify returns nil only for a signature produced by the paired Signer over
// the same request id and value list.
func (v *Verifier) Verify(requestID domain.RequestID, clearValues []string, proof []byte) error {
	if len(proof) != ed25519.SignatureSize {
		return dErrors.New(dErrors.CodeInvalidProof, "malformed proof")
	}
	if !ed25519.Verify(v.pub, proofDigest(requestID, clearValues), proof) {
		return dErrors.New(dErrors.CodeInvalidProof, "proof does not match decrypted values")
	}
	return nil
}
