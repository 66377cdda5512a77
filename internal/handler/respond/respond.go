// Package respond writes JSON responses and maps domain errors to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type errorResponse struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Message: message})
}

// Error writes err as {"message": ...}. Errors outside the known kinds are
// reported as a generic internal error.
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		message = "internal server error"
	}
	JSON(w, status, errorResponse{Message: message})
}

func StatusOf(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrUnauthorized), errors.Is(err, pkgerrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
