package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "velum/pkg/domain-errors"
)

func TestParseTwinID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTwinID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := ParseTwinID("heart")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero and negatives", func(t *testing.T) {
		for _, input := range []string{"0", "-1", "-42"} {
			_, err := ParseTwinID(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("accepts positive integers", func(t *testing.T) {
		id, err := ParseTwinID("17")
		require.NoError(t, err)
		assert.Equal(t, TwinID(17), id)
		assert.True(t, id.IsValid())
		assert.Equal(t, "17", id.String())
	})
}

func TestParseRequestID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRequestID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized tokens", func(t *testing.T) {
		_, err := ParseRequestID(strings.Repeat("a", maxRequestIDLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid UTF-8", func(t *testing.T) {
		_, err := ParseRequestID(string([]byte{0xff, 0xfe}))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts opaque tokens verbatim", func(t *testing.T) {
		id, err := ParseRequestID("req-550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Equal(t, "req-550e8400-e29b-41d4-a716-446655440000", id.String())
		assert.False(t, id.IsZero())
	})
}

func TestParseCategory(t *testing.T) {
	t.Run("rejects empty and blank labels", func(t *testing.T) {
		for _, input := range []string{"", "   ", "\t"} {
			_, err := ParseCategory(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("normalizes case so labels share counters", func(t *testing.T) {
		a, err := ParseCategory("Heart")
		require.NoError(t, err)
		b, err := ParseCategory("  heart ")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, "heart", a.String())
	})

	t.Run("rejects oversized labels", func(t *testing.T) {
		_, err := ParseCategory(strings.Repeat("x", maxCategoryLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestCiphertextClone(t *testing.T) {
	ct := Ciphertext{0x01, 0x02, 0x03}
	clone := ct.Clone()

	require.Equal(t, ct, clone)
	clone[0] = 0xff
	assert.Equal(t, byte(0x01), ct[0], "clone must not alias the original")

	assert.True(t, Ciphertext(nil).IsZero())
	assert.Nil(t, Ciphertext(nil).Clone())
	assert.False(t, ct.IsZero())
}
