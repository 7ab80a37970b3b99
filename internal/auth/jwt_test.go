package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	s := NewTokenService("secret", "refresh-secret", time.Minute, time.Hour)
	userID := uuid.New()

	token, err := s.GenerateAccessToken(userID)
	require.NoError(t, err)

	claims, err := s.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	s := NewTokenService("secret", "refresh-secret", time.Minute, time.Hour)

	_, err := s.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", "refresh", time.Minute, time.Hour)
	verifier := NewTokenService("secret-b", "refresh", time.Minute, time.Hour)

	token, err := issuer.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	s := NewTokenService("secret", "refresh-secret", -time.Minute, time.Hour)

	token, err := s.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestGenerateRefreshToken(t *testing.T) {
	s := NewTokenService("secret", "refresh-secret", time.Minute, time.Hour)

	token, expiresAt, err := s.GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 random bytes, hex encoded
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	other, _, err := s.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
