package errors

import (
	"errors"
	"fmt"
)

// Kinds. Every error returned across a package boundary wraps exactly one of
// these so the HTTP layer can map it to a status code.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

var (
	ErrUserNotFound            = fmt.Errorf("user %w", ErrNotFound)
	ErrUserAlreadyExists       = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrInvalidCredentials      = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrNilUser                 = fmt.Errorf("%w: user is nil", ErrValidation)
	ErrNilTransaction          = fmt.Errorf("%w: transaction is nil", ErrValidation)
	ErrNilStore                = fmt.Errorf("%w: store is nil", ErrValidation)
	ErrTransactionNotFound     = fmt.Errorf("transaction %w", ErrNotFound)
	ErrInvalidTransactionState = fmt.Errorf("%w: invalid transaction status", ErrValidation)
	ErrIllegalTransition       = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrTransactionNotPending   = fmt.Errorf("%w: transaction is not pending", ErrConflict)
	ErrSelfTransaction         = fmt.Errorf("%w: buyer and seller must differ", ErrValidation)
	ErrStoreNotFound           = fmt.Errorf("store %w", ErrNotFound)
	ErrStoreItemNotFound       = fmt.Errorf("store item %w", ErrNotFound)
	ErrStaleVersion            = fmt.Errorf("%w: store was modified concurrently", ErrConflict)
	ErrTokenRevoked            = fmt.Errorf("%w: token revoked", ErrInvalidToken)
	ErrTokenExpired            = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrMissingToken            = fmt.Errorf("%w: no token provided", ErrUnauthorized)
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
