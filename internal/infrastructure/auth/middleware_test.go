package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	redismocks "github.com/honeynil/TrustPay/internal/infrastructure/redis/mocks"
	"github.com/honeynil/TrustPay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := redismocks.NewMockRedisClient(ctrl)
	tokens := NewTokenManager("secret", time.Hour)
	signed, issued, err := tokens.Generate(&models.User{ID: 7, Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	var seen *models.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guarded := AuthMiddleware(tokens, cache)(next)

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec
	}
	message := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Message
	}

	t.Run("MissingHeader", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, message(rec), "unauthorized")
	})

	t.Run("NotBearer", func(t *testing.T) {
		rec := serve("Basic " + signed)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, message(rec), "unauthorized")
	})

	t.Run("InvalidToken", func(t *testing.T) {
		rec := serve("Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, message(rec), "invalid token")
	})

	t.Run("Revoked", func(t *testing.T) {
		cache.EXPECT().Exists(gomock.Any(), RevokedKey(issued.ID)).Return(true, nil)

		rec := serve("Bearer " + signed)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, message(rec), "revoked")
	})

	t.Run("Valid", func(t *testing.T) {
		seen = nil
		cache.EXPECT().Exists(gomock.Any(), RevokedKey(issued.ID)).Return(false, nil)

		rec := serve("Bearer " + signed)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(7), seen.UserID)
	})

	t.Run("CacheErrorDoesNotBlock", func(t *testing.T) {
		cache.EXPECT().Exists(gomock.Any(), RevokedKey(issued.ID)).Return(false, errors.New("connection refused"))

		rec := serve("Bearer " + signed)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	claims, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)
	assert.Nil(t, claims)
}
