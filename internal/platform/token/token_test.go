package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velum/internal/platform/middleware"
	dErrors "velum/pkg/domain-errors"
)

var tokenService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var subject = "dr-muller"
var expiresIn = time.Hour

func Test_Issue(t *testing.T) {
	signed, err := tokenService.Issue(subject, "operator", expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokenService.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "operator", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateToken("invalid-token-string")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorContains(t, err, "invalid token")
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	signed, err := tokenService.Issue(subject, "operator", -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorContains(t, err, "token has expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewService("other-signing-key", "test-issuer", "test-audience")
	signed, err := other.Issue(subject, "operator", expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewService("test-signing-key", "other-issuer", "test-audience")
	signed, err := other.Issue(subject, "operator", expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(signed)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Adapter_MapsClaims(t *testing.T) {
	signed, err := tokenService.Issue("admin-eve", middleware.RoleAdmin, expiresIn)
	require.NoError(t, err)

	claims, err := NewAdapter(tokenService).ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin-eve", claims.Subject)
	assert.Equal(t, middleware.RoleAdmin, claims.Role)
}

func Test_Adapter_PropagatesError(t *testing.T) {
	_, err := NewAdapter(tokenService).ValidateToken("garbage")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
