package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenIsOneTimeUse(t *testing.T) {
	store := NewCSRFStore(30 * time.Minute)

	token, err := store.GenerateToken()
	require.NoError(t, err)
	require.Len(t, token, 64)

	assert.True(t, store.ValidateToken(token))
	assert.False(t, store.ValidateToken(token), "token should be consumed on first use")
}

func TestCSRFTokenUnknownRejected(t *testing.T) {
	store := NewCSRFStore(30 * time.Minute)
	assert.False(t, store.ValidateToken("deadbeef"))
	assert.False(t, store.ValidateToken(""))
}

func TestCSRFTokenExpires(t *testing.T) {
	store := NewCSRFStore(10 * time.Millisecond)

	token, err := store.GenerateToken()
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, store.ValidateToken(token))
}

func TestCSRFTokensAreUnique(t *testing.T) {
	store := NewCSRFStore(30 * time.Minute)

	a, err := store.GenerateToken()
	require.NoError(t, err)
	b, err := store.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("token", "token"))
	assert.False(t, SecureCompare("token", "Token"))
	assert.False(t, SecureCompare("token", "token "))
	assert.False(t, SecureCompare("", "x"))
	assert.True(t, SecureCompare("", ""))
}
