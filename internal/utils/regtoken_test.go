package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistrationToken_Format(t *testing.T) {
	tok, err := NewRegistrationToken()
	require.NoError(t, err)

	assert.Len(t, tok, 9, "two groups of four plus a hyphen")
	assert.True(t, IsRegistrationToken(tok), "token should match the grouped format: %s", tok)
}

func TestNewRegistrationToken_AlphabetExcludesAmbiguous(t *testing.T) {
	for i := 0; i < 50; i++ {
		tok, err := NewRegistrationToken()
		require.NoError(t, err)
		for _, c := range strings.ReplaceAll(tok, "-", "") {
			assert.Contains(t, regTokenAlphabet, string(c))
			assert.NotContains(t, "IO01", string(c), "ambiguous characters must not appear")
		}
	}
}

func TestNewRegistrationToken_NoImmediateCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := NewRegistrationToken()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token in a small sample: %s", tok)
		seen[tok] = true
	}
}

func TestIsRegistrationToken_RejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "ABCD", "ABCDEFGH", "abcd-efgh", "AB1D-EFGH", "ABCD-EFGH-JKLM", "ABCD EFGH"} {
		assert.False(t, IsRegistrationToken(s), "should reject %q", s)
	}
	assert.True(t, IsRegistrationToken("AB22-CD34"))
}
