package repository

import (
	"context"

	"github.com/honeynil/TrustPay/internal/models"
)

//go:generate mockgen -destination=mocks/mock_store_repository.go -package=mocks github.com/honeynil/TrustPay/internal/repository StoreRepository

// StoreRepository persists stores and their items. Every method taking a
// userID only touches stores owned by that user and reports ErrStoreNotFound
// otherwise.
type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	ListByOwner(ctx context.Context, userID int64) ([]models.Store, error)
	GetOwned(ctx context.Context, id, userID int64) (*models.Store, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*models.Store, error)
	// Update replaces the name and the whole item set of an owned store.
	// A non-nil expectedVersion must match the stored version.
	Update(ctx context.Context, store *models.Store, expectedVersion *int64) error
	Delete(ctx context.Context, id, userID int64) error
	AddItem(ctx context.Context, userID int64, item *models.StoreItem) error
	UpdateItem(ctx context.Context, userID int64, item *models.StoreItem) error
	DeleteItem(ctx context.Context, userID, storeID, itemID int64) error
}
