package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", "alice", "alice@example.com", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "alice", "alice@example.com", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("secret-b"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", "alice", "alice@example.com", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("definitely.not.ajwt", []byte("test-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiryIsOneHour(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", "alice", "alice@example.com", secret, TokenTTL)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)

	expires := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
}
