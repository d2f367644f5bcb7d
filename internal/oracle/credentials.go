package oracle

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "velum/pkg/domain-errors"
)

// Callback credentials: the oracle runtime authenticates to the callback
// endpoints with a bearer secret; the service stores only its bcrypt hash.

// GenerateCallbackSecret creates a cryptographically secure random secret,
// base64-encoded for use as the oracle's bearer credential.
func GenerateCallbackSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate callback secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashCallbackSecret creates the bcrypt hash stored in configuration.
func HashCallbackSecret(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash callback secret: %w", err)
	}
	return string(hashed), nil
}

// CredentialVerifier checks presented callback secrets against the
// configured hash. It satisfies the middleware's CallbackVerifier.
type CredentialVerifier struct {
	hash string
}

// NewCredentialVerifier wraps a bcrypt hash from configuration.
func NewCredentialVerifier(hash string) *CredentialVerifier {
	return &CredentialVerifier{hash: hash}
}

// VerifyCallbackSecret returns nil if the presented secret matches.
func (v *CredentialVerifier) VerifyCallbackSecret(secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid callback secret")
		}
		return fmt.Errorf("could not verify callback secret: %w", err)
	}
	return nil
}
