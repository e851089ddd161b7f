package middleware

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret, userID string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.Equal(t, err, nil)
	return signed
}

func TestParseTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed := signTestToken(t, "test-secret", "u1", time.Hour)

	claims, err := ParseToken(signed)
	assert.Equal(t, err, nil)
	assert.Equal(t, claims.UserID, "u1")
}

func TestParseTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed := signTestToken(t, "other-secret", "u1", time.Hour)

	_, err := ParseToken(signed)
	assert.NotEqual(t, err, nil)
}

func TestParseTokenExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed := signTestToken(t, "test-secret", "u1", -time.Hour)

	_, err := ParseToken(signed)
	assert.NotEqual(t, err, nil)
}
