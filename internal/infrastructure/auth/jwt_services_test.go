package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/TrustPay/internal/models"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateValidate(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	user := &models.User{ID: 42, Username: "alice", Email: "alice@example.com"}

	signed, issued, err := tokens.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.NotEmpty(t, issued.ID)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenManager_Validate(t *testing.T) {
	user := &models.User{ID: 1, Username: "bob", Email: "bob@example.com"}

	t.Run("Expired", func(t *testing.T) {
		tokens := NewTokenManager("secret", time.Minute)
		tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		signed, _, err := tokens.Generate(user)
		require.NoError(t, err)

		tokens.now = time.Now
		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, pkgerrors.ErrTokenExpired)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		signed, _, err := NewTokenManager("other", time.Hour).Generate(user)
		require.NoError(t, err)

		_, err = NewTokenManager("secret", time.Hour).Validate(signed)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		claims := &models.Claims{
			UserID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "id",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = NewTokenManager("secret", time.Hour).Validate(signed)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		claims := &models.Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ID: "id", Issuer: issuer}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = NewTokenManager("secret", time.Hour).Validate(signed)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := NewTokenManager("secret", time.Hour).Validate("not-a-token")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidToken)
	})

	t.Run("EmptySecret", func(t *testing.T) {
		_, _, err := NewTokenManager("", time.Hour).Generate(user)
		assert.Error(t, err)
	})
}
