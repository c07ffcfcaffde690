package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPKCEPairProducesURLSafeVerifier(t *testing.T) {
	t.Parallel()

	pair, err := NewPKCEPair()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(pair.Verifier)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotContains(t, pair.Verifier, "=")
	assert.NotContains(t, pair.Challenge, "=")
}

func TestChallengeForIsS256OfVerifier(t *testing.T) {
	t.Parallel()

	verifier := "test-verifier"
	hash := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(hash[:])

	assert.Equal(t, expected, ChallengeFor(verifier))
}

func TestNewPKCEPairChallengeMatchesVerifier(t *testing.T) {
	t.Parallel()

	pair, err := NewPKCEPair()
	require.NoError(t, err)
	assert.Equal(t, ChallengeFor(pair.Verifier), pair.Challenge)
}

func TestNewPKCEPairVerifiersAreUnique(t *testing.T) {
	t.Parallel()

	first, err := NewPKCEPair()
	require.NoError(t, err)
	second, err := NewPKCEPair()
	require.NoError(t, err)

	assert.NotEqual(t, first.Verifier, second.Verifier)
}
