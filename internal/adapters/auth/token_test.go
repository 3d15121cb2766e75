package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.Claims, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier_Verify(t *testing.T) {
	const secret = "test-secret"
	v := NewJWTVerifier(secret)

	t.Run("valid token", func(t *testing.T) {
		s := signToken(t, secret, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}, jwt.SigningMethodHS256)

		userID, err := v.Verify(s)
		require.NoError(t, err)
		require.Equal(t, "user-1", userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		s := signToken(t, "other-secret", jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}, jwt.SigningMethodHS256)

		_, err := v.Verify(s)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		s := signToken(t, secret, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}, jwt.SigningMethodHS256)

		_, err := v.Verify(s)
		require.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		s := signToken(t, secret, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}, jwt.SigningMethodHS256)

		_, err := v.Verify(s)
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.Verify("not-a-jwt")
		require.Error(t, err)
	})
}
