package repository

import (
	"context"

	"github.com/honeynil/TrustPay/internal/models"
)

//go:generate mockgen -destination=mocks/mock_transaction_repository.go -package=mocks github.com/honeynil/TrustPay/internal/repository TransactionRepository

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	ListByParty(ctx context.Context, userID int64, limit int) ([]models.TransactionView, error)
	// UpdateStatus moves a transaction from one status to another. It fails
	// with ErrIllegalTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to models.StatusType) error
	DeletePending(ctx context.Context, id, buyerID int64) error
}
