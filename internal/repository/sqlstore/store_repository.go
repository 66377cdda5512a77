package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/TrustPay/internal/models"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	storeColumns = `id, user_id, name, unique_id, version, created_at, updated_at`
	itemColumns  = `id, store_id, position, name, price, quantity, item_type, description`
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(ctx context.Context, store *models.Store) (err error) {
	ctx, span, done := track(ctx, "store-repository", "CreateStore")
	defer func() { done(err) }()

	if store == nil {
		err = pkgerrors.ErrNilStore
		return err
	}
	span.SetAttributes(attribute.Int64("user_id", store.UserID), attribute.Int("items", len(store.Items)))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "CreateStore", "error", err)
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	now := time.Now().UTC()
	query := `INSERT INTO stores (user_id, name, unique_id, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = dbTx.QueryRowContext(ctx, query, store.UserID, store.Name, store.UniqueID, 1, now, now).Scan(&store.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: store unique id already taken", pkgerrors.ErrConflict)
		} else {
			slog.Error("failed to create store", "method", "CreateStore", "user_id", store.UserID, "error", err)
			err = fmt.Errorf("failed to create store: %w", err)
		}
		err = rollback(dbTx, "CreateStore", err)
		return err
	}

	if err = insertItems(ctx, dbTx, store.ID, store.Items, 0); err != nil {
		err = rollback(dbTx, "CreateStore", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "CreateStore", "error", err)
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	store.Version = 1
	store.CreatedAt = now
	store.UpdatedAt = now
	slog.Info("store created", "method", "CreateStore", "store_id", store.ID, "user_id", store.UserID, "items", len(store.Items))
	return nil
}

func (r *StoreRepository) ListByOwner(ctx context.Context, userID int64) (stores []models.Store, err error) {
	ctx, span, done := track(ctx, "store-repository", "ListStoresByOwner")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("user_id", userID))

	rows, err := r.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		slog.Error("failed to list stores", "method", "ListByOwner", "user_id", userID, "error", err)
		err = fmt.Errorf("failed to list stores: %w", err)
		return nil, err
	}
	stores = []models.Store{}
	index := map[int64]int{}
	for rows.Next() {
		var s models.Store
		if err = rows.Scan(&s.ID, &s.UserID, &s.Name, &s.UniqueID, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			err = fmt.Errorf("failed to scan store: %w", err)
			return nil, err
		}
		s.Items = []models.StoreItem{}
		index[s.ID] = len(stores)
		stores = append(stores, s)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to list stores: %w", err)
		return nil, err
	}
	if len(stores) == 0 {
		return stores, nil
	}

	itemQuery := `SELECT ` + itemColumns + ` FROM store_items WHERE store_id IN (SELECT id FROM stores WHERE user_id = $1) ORDER BY store_id, position, id`
	items, err := scanItems(r.db.QueryContext(ctx, itemQuery, userID))
	if err != nil {
		slog.Error("failed to list store items", "method", "ListByOwner", "user_id", userID, "error", err)
		return nil, err
	}
	for _, item := range items {
		if i, ok := index[item.StoreID]; ok {
			stores[i].Items = append(stores[i].Items, item)
		}
	}
	return stores, nil
}

func (r *StoreRepository) GetOwned(ctx context.Context, id, userID int64) (store *models.Store, err error) {
	ctx, span, done := track(ctx, "store-repository", "GetOwnedStore")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("store_id", id), attribute.Int64("user_id", userID))

	store, err = r.getOne(ctx, r.db, `SELECT `+storeColumns+` FROM stores WHERE id = $1 AND user_id = $2`, id, userID)
	return store, err
}

func (r *StoreRepository) GetByUniqueID(ctx context.Context, uniqueID string) (store *models.Store, err error) {
	ctx, _, done := track(ctx, "store-repository", "GetStoreByUniqueID")
	defer func() { done(err) }()

	store, err = r.getOne(ctx, r.db, `SELECT `+storeColumns+` FROM stores WHERE unique_id = $1`, uniqueID)
	return store, err
}

func (r *StoreRepository) Update(ctx context.Context, store *models.Store, expectedVersion *int64) (err error) {
	ctx, span, done := track(ctx, "store-repository", "UpdateStore")
	defer func() { done(err) }()

	if store == nil {
		err = pkgerrors.ErrNilStore
		return err
	}
	span.SetAttributes(attribute.Int64("store_id", store.ID), attribute.Int64("user_id", store.UserID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	if _, err = claimStore(ctx, dbTx, store.ID, store.UserID, expectedVersion); err != nil {
		err = rollback(dbTx, "UpdateStore", err)
		return err
	}
	if _, err = dbTx.ExecContext(ctx, `UPDATE stores SET name = $1 WHERE id = $2`, store.Name, store.ID); err != nil {
		err = rollback(dbTx, "UpdateStore", fmt.Errorf("failed to update store: %w", err))
		return err
	}
	if _, err = dbTx.ExecContext(ctx, `DELETE FROM store_items WHERE store_id = $1`, store.ID); err != nil {
		err = rollback(dbTx, "UpdateStore", fmt.Errorf("failed to delete store items: %w", err))
		return err
	}
	if err = insertItems(ctx, dbTx, store.ID, store.Items, 0); err != nil {
		err = rollback(dbTx, "UpdateStore", err)
		return err
	}

	updated, err := r.getOne(ctx, dbTx, `SELECT `+storeColumns+` FROM stores WHERE id = $1 AND user_id = $2`, store.ID, store.UserID)
	if err != nil {
		err = rollback(dbTx, "UpdateStore", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "UpdateStore", "error", err)
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	*store = *updated
	slog.Info("store updated", "method", "UpdateStore", "store_id", store.ID, "version", store.Version, "items", len(store.Items))
	return nil
}

func (r *StoreRepository) Delete(ctx context.Context, id, userID int64) (err error) {
	ctx, span, done := track(ctx, "store-repository", "DeleteStore")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("store_id", id), attribute.Int64("user_id", userID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	if _, err = claimStore(ctx, dbTx, id, userID, nil); err != nil {
		err = rollback(dbTx, "DeleteStore", err)
		return err
	}
	if _, err = dbTx.ExecContext(ctx, `DELETE FROM store_items WHERE store_id = $1`, id); err != nil {
		err = rollback(dbTx, "DeleteStore", fmt.Errorf("failed to delete store items: %w", err))
		return err
	}
	if _, err = dbTx.ExecContext(ctx, `DELETE FROM stores WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		err = rollback(dbTx, "DeleteStore", fmt.Errorf("failed to delete store: %w", err))
		return err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	slog.Info("store deleted", "method", "DeleteStore", "store_id", id, "user_id", userID)
	return nil
}

func (r *StoreRepository) AddItem(ctx context.Context, userID int64, item *models.StoreItem) (err error) {
	ctx, span, done := track(ctx, "store-repository", "AddStoreItem")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("store_id", item.StoreID), attribute.Int64("user_id", userID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	if _, err = claimStore(ctx, dbTx, item.StoreID, userID, nil); err != nil {
		err = rollback(dbTx, "AddStoreItem", err)
		return err
	}

	var next int
	err = dbTx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM store_items WHERE store_id = $1`, item.StoreID).Scan(&next)
	if err != nil {
		err = rollback(dbTx, "AddStoreItem", fmt.Errorf("failed to read item position: %w", err))
		return err
	}

	items := []models.StoreItem{*item}
	if err = insertItems(ctx, dbTx, item.StoreID, items, next); err != nil {
		err = rollback(dbTx, "AddStoreItem", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	*item = items[0]
	slog.Info("store item added", "method", "AddStoreItem", "store_id", item.StoreID, "item_id", item.ID)
	return nil
}

func (r *StoreRepository) UpdateItem(ctx context.Context, userID int64, item *models.StoreItem) (err error) {
	ctx, span, done := track(ctx, "store-repository", "UpdateStoreItem")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("store_id", item.StoreID), attribute.Int64("item_id", item.ID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	if _, err = claimStore(ctx, dbTx, item.StoreID, userID, nil); err != nil {
		err = rollback(dbTx, "UpdateStoreItem", err)
		return err
	}

	query := `UPDATE store_items SET name = $1, price = $2, quantity = $3, item_type = $4, description = $5 WHERE id = $6 AND store_id = $7 RETURNING position`
	err = dbTx.QueryRowContext(ctx, query, item.Name, item.Price, item.Quantity, item.Type, item.Description, item.ID, item.StoreID).Scan(&item.Position)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = rollback(dbTx, "UpdateStoreItem", pkgerrors.ErrStoreItemNotFound)
		return err
	}
	if err != nil {
		err = rollback(dbTx, "UpdateStoreItem", fmt.Errorf("failed to update store item: %w", err))
		return err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	slog.Info("store item updated", "method", "UpdateStoreItem", "store_id", item.StoreID, "item_id", item.ID)
	return nil
}

func (r *StoreRepository) DeleteItem(ctx context.Context, userID, storeID, itemID int64) (err error) {
	ctx, span, done := track(ctx, "store-repository", "DeleteStoreItem")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("store_id", storeID), attribute.Int64("item_id", itemID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to begin transaction: %w", err)
		return err
	}

	if _, err = claimStore(ctx, dbTx, storeID, userID, nil); err != nil {
		err = rollback(dbTx, "DeleteStoreItem", err)
		return err
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM store_items WHERE id = $1 AND store_id = $2`, itemID, storeID)
	if err != nil {
		err = rollback(dbTx, "DeleteStoreItem", fmt.Errorf("failed to delete store item: %w", err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = rollback(dbTx, "DeleteStoreItem", fmt.Errorf("failed to delete store item: %w", err))
		return err
	}
	if affected == 0 {
		err = rollback(dbTx, "DeleteStoreItem", pkgerrors.ErrStoreItemNotFound)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return err
	}

	slog.Info("store item deleted", "method", "DeleteStoreItem", "store_id", storeID, "item_id", itemID)
	return nil
}

// claimStore is the ownership check that opens every store mutation. It
// bumps the store version, which also takes the row's write lock for the rest
// of dbTx, and fails with ErrStoreNotFound when userID does not own the store
// or ErrStaleVersion when expectedVersion no longer matches.
func claimStore(ctx context.Context, dbTx *sql.Tx, storeID, userID int64, expectedVersion *int64) (int64, error) {
	query := `UPDATE stores SET version = version + 1, updated_at = $1 WHERE id = $2 AND user_id = $3`
	args := []any{time.Now().UTC(), storeID, userID}
	if expectedVersion != nil {
		query += ` AND version = $4`
		args = append(args, *expectedVersion)
	}
	query += ` RETURNING version`

	var version int64
	err := dbTx.QueryRowContext(ctx, query, args...).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to claim store: %w", err)
	}
	if expectedVersion == nil {
		return 0, pkgerrors.ErrStoreNotFound
	}

	var found int
	err = dbTx.QueryRowContext(ctx, `SELECT 1 FROM stores WHERE id = $1 AND user_id = $2`, storeID, userID).Scan(&found)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.ErrStoreNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to claim store: %w", err)
	}
	return 0, pkgerrors.ErrStaleVersion
}

// insertItems inserts items in order starting at position first and fills in
// their server-assigned fields.
func insertItems(ctx context.Context, dbTx *sql.Tx, storeID int64, items []models.StoreItem, first int) error {
	query := `INSERT INTO store_items (store_id, position, name, price, quantity, item_type, description) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	for i := range items {
		item := &items[i]
		item.StoreID = storeID
		item.Position = first + i
		if item.Type == "" {
			item.Type = models.ItemProduct
		}
		err := dbTx.QueryRowContext(ctx, query, storeID, item.Position, item.Name, item.Price, item.Quantity, item.Type, item.Description).Scan(&item.ID)
		if err != nil {
			if isCheckViolation(err) {
				return fmt.Errorf("%w: item %q violates price or quantity constraints", pkgerrors.ErrValidation, item.Name)
			}
			slog.Error("failed to insert store item", "method", "insertItems", "store_id", storeID, "error", err)
			return fmt.Errorf("failed to insert store item: %w", err)
		}
	}
	return nil
}

func (r *StoreRepository) getOne(ctx context.Context, q querier, query string, args ...any) (*models.Store, error) {
	var s models.Store
	err := q.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.Name, &s.UniqueID, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	items, err := scanItems(q.QueryContext(ctx, `SELECT `+itemColumns+` FROM store_items WHERE store_id = $1 ORDER BY position, id`, s.ID))
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

func scanItems(rows *sql.Rows, err error) ([]models.StoreItem, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query store items: %w", err)
	}
	defer rows.Close()

	items := []models.StoreItem{}
	for rows.Next() {
		var item models.StoreItem
		if err := rows.Scan(&item.ID, &item.StoreID, &item.Position, &item.Name, &item.Price, &item.Quantity, &item.Type, &item.Description); err != nil {
			return nil, fmt.Errorf("failed to scan store item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store items: %w", err)
	}
	return items, nil
}
