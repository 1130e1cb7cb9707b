package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "ADMIN", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestAccessTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	tok, err := NewAccessToken("a", 1, "CUSTOMER", time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("b", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAccessToken("a", 1, "CUSTOMER", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("a", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("a"))
	require.NoError(t, err)
	_, err = ParseAccessToken("a", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(24 * time.Hour)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.Equal(t, HashRefreshRaw("x"), HashRefreshRaw("x"))
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "correct horse"))
	assert.False(t, VerifyPassword(h, "wrong"))
}

func TestPasswordLength(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// counted in characters, not bytes
	_, err = HashPassword("ééééééé", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
