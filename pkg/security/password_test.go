package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/security"
)

func cheapConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerify(t *testing.T) {
	h := security.NewHasher(cheapConfig())

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)

	ok, err := h.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("Correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salt must differ per hash")
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	old := security.NewHasher(cheapConfig())
	encoded, err := old.Hash("pa55word!")
	require.NoError(t, err)

	stronger := cheapConfig()
	stronger.ArgonTime = 2
	current := security.NewHasher(stronger)

	ok, err := current.Verify("pa55word!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, current.NeedsRehash(encoded))
	assert.False(t, old.NeedsRehash(encoded))
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := security.NewHasher(cheapConfig()).Hash("")
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := security.NewHasher(cheapConfig())
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=8,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=abc,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=999$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1$!!!$aGFzaA",
	} {
		_, err := h.Verify("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
		assert.True(t, h.NeedsRehash(encoded), encoded)
	}
}

func TestNewHasherClampsConfig(t *testing.T) {
	h := security.NewHasher(config.PasswordConfig{})
	encoded, err := h.Hash("x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8,t=1,p=1$"), encoded)
	h.Burn("x")
}
