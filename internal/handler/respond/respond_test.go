package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation field", pkgerrors.NewValidationError("name", "is required"), http.StatusBadRequest},
		{"validation sentinel", pkgerrors.ErrSelfTransaction, http.StatusBadRequest},
		{"missing token", pkgerrors.ErrMissingToken, http.StatusUnauthorized},
		{"bad credentials", pkgerrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired token", pkgerrors.ErrTokenExpired, http.StatusUnauthorized},
		{"store not found", pkgerrors.ErrStoreNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", pkgerrors.ErrUserNotFound), http.StatusNotFound},
		{"duplicate email", pkgerrors.ErrUserAlreadyExists, http.StatusConflict},
		{"stale version", pkgerrors.ErrStaleVersion, http.StatusConflict},
		{"illegal transition", pkgerrors.ErrIllegalTransition, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["message"])
}

func TestError_EchoesDomainMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, pkgerrors.ErrStoreNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "store not found", body["message"])
}

func TestJSON_MoneyIsANumber(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]decimal.Decimal{"amount": decimal.RequireFromString("12.50")})

	assert.JSONEq(t, `{"amount":12.5}`, rec.Body.String())
}
