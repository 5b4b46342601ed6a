package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPassword("correct horse battery", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordLen+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	// 100 chars is well past bcrypt's 72-byte limit; the bound must catch it
	// before GenerateFromPassword ever sees the input
	_, err = HashPassword(strings.Repeat("a", 100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 72 bytes")
}

func TestHashPassword_MaxLenAccepted(t *testing.T) {
	hash, err := HashPassword(strings.Repeat("a", MaxPasswordLen))
	require.NoError(t, err)
	assert.True(t, CheckPassword(strings.Repeat("a", MaxPasswordLen), hash))
}

func TestCheckPassword_InvalidHash(t *testing.T) {
	assert.False(t, CheckPassword("anything", "not-a-bcrypt-hash"))
}
