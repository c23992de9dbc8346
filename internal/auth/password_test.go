package auth

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	first, err := HashPassword("wonder")
	require.NoError(t, err)
	second, err := HashPassword("wonder")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same password should hash differently each time")
	assert.True(t, CheckPassword("wonder", first))
	assert.True(t, CheckPassword("wonder", second))
}

func TestHashPasswordIsNotPlaintext(t *testing.T) {
	hash, err := HashPassword("wonder")
	require.NoError(t, err)
	assert.NotContains(t, hash, "wonder")
}

func TestCheckPasswordRejects(t *testing.T) {
	hash, err := HashPassword("wonder")
	require.NoError(t, err)

	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("", hash))
	assert.False(t, CheckPassword("wonder", "not-a-bcrypt-hash"))
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73))
	assert.Error(t, err)
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, sessionTokenBytes*2)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
