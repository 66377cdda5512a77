package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/honeynil/TrustPay/internal/infrastructure/kafka"
	"github.com/honeynil/TrustPay/internal/models"
	"github.com/honeynil/TrustPay/internal/repository"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StoreInput is the full desired state of a store. Items replaces the whole
// item set; a nil Items is rejected, an empty one clears the store.
type StoreInput struct {
	Name    string
	Items   []models.StoreItem
	Version *int64
}

type StoreService interface {
	Create(ctx context.Context, userID int64, in StoreInput) (*models.Store, error)
	List(ctx context.Context, userID int64) ([]models.Store, error)
	Get(ctx context.Context, userID, id int64) (*models.Store, error)
	GetPublic(ctx context.Context, uniqueID string) (*models.Store, error)
	Update(ctx context.Context, userID, id int64, in StoreInput) (*models.Store, error)
	Delete(ctx context.Context, userID, id int64) error
	AddItem(ctx context.Context, userID, storeID int64, item models.StoreItem) (*models.StoreItem, error)
	UpdateItem(ctx context.Context, userID, storeID, itemID int64, item models.StoreItem) (*models.StoreItem, error)
	DeleteItem(ctx context.Context, userID, storeID, itemID int64) error
}

type storeService struct {
	storeRepo repository.StoreRepository
	publisher kafka.Publisher
}

func NewStoreService(storeRepo repository.StoreRepository, publisher kafka.Publisher) *storeService {
	return &storeService{
		storeRepo: storeRepo,
		publisher: publisher,
	}
}

func (s *storeService) Create(ctx context.Context, userID int64, in StoreInput) (*models.Store, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	if err := validateStoreInput(&in); err != nil {
		span.SetStatus(codes.Error, "invalid store")
		return nil, err
	}

	store := &models.Store{
		UserID:   userID,
		Name:     in.Name,
		UniqueID: uuid.NewString(),
		Items:    in.Items,
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store creation failed")
		slog.Error("failed to create store", "user_id", userID, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.Event{
		Type:    kafka.EventStoreCreated,
		Key:     store.ID,
		Payload: map[string]interface{}{"store_id": store.ID, "user_id": userID, "unique_id": store.UniqueID},
	})

	slog.Info("store created", "store_id", store.ID, "user_id", userID, "items", len(store.Items))
	return store, nil
}

func (s *storeService) List(ctx context.Context, userID int64) ([]models.Store, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	stores, err := s.storeRepo.ListByOwner(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list stores", "user_id", userID, "error", err)
		return nil, err
	}
	return stores, nil
}

func (s *storeService) Get(ctx context.Context, userID, id int64) (*models.Store, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	store, err := s.storeRepo.GetOwned(ctx, id, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return store, nil
}

func (s *storeService) GetPublic(ctx context.Context, uniqueID string) (*models.Store, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "GetPublic")
	defer span.End()

	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		return nil, pkgerrors.NewValidationError("uniqueId", "unique id is required")
	}
	store, err := s.storeRepo.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return store, nil
}

func (s *storeService) Update(ctx context.Context, userID, id int64, in StoreInput) (*models.Store, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("store_id", id))

	if err := validateStoreInput(&in); err != nil {
		span.SetStatus(codes.Error, "invalid store")
		return nil, err
	}

	store := &models.Store{
		ID:     id,
		UserID: userID,
		Name:   in.Name,
		Items:  in.Items,
	}
	if err := s.storeRepo.Update(ctx, store, in.Version); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store update failed")
		slog.Error("failed to update store", "store_id", id, "user_id", userID, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.Event{
		Type:    kafka.EventStoreUpdated,
		Key:     id,
		Payload: map[string]interface{}{"store_id": id, "user_id": userID, "version": store.Version},
	})

	slog.Info("store updated", "store_id", id, "user_id", userID, "version", store.Version)
	return store, nil
}

func (s *storeService) Delete(ctx context.Context, userID, id int64) error {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	if err := s.storeRepo.Delete(ctx, id, userID); err != nil {
		span.RecordError(err)
		slog.Error("failed to delete store", "store_id", id, "user_id", userID, "error", err)
		return err
	}

	s.publish(ctx, kafka.Event{
		Type:    kafka.EventStoreDeleted,
		Key:     id,
		Payload: map[string]interface{}{"store_id": id, "user_id": userID},
	})

	slog.Info("store deleted", "store_id", id, "user_id", userID)
	return nil
}

func (s *storeService) AddItem(ctx context.Context, userID, storeID int64, item models.StoreItem) (*models.StoreItem, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "AddItem")
	defer span.End()

	items := []models.StoreItem{item}
	if err := normalizeItems(items); err != nil {
		return nil, err
	}
	created := items[0]
	created.StoreID = storeID
	if err := s.storeRepo.AddItem(ctx, userID, &created); err != nil {
		span.RecordError(err)
		slog.Error("failed to add store item", "store_id", storeID, "user_id", userID, "error", err)
		return nil, err
	}

	s.publishItemChange(ctx, userID, storeID, created.ID)
	return &created, nil
}

func (s *storeService) UpdateItem(ctx context.Context, userID, storeID, itemID int64, item models.StoreItem) (*models.StoreItem, error) {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "UpdateItem")
	defer span.End()

	items := []models.StoreItem{item}
	if err := normalizeItems(items); err != nil {
		return nil, err
	}
	updated := items[0]
	updated.ID = itemID
	updated.StoreID = storeID
	if err := s.storeRepo.UpdateItem(ctx, userID, &updated); err != nil {
		span.RecordError(err)
		slog.Error("failed to update store item", "store_id", storeID, "item_id", itemID, "error", err)
		return nil, err
	}

	s.publishItemChange(ctx, userID, storeID, itemID)
	return &updated, nil
}

func (s *storeService) DeleteItem(ctx context.Context, userID, storeID, itemID int64) error {
	tracer := otel.Tracer("store-service")
	ctx, span := tracer.Start(ctx, "DeleteItem")
	defer span.End()

	if err := s.storeRepo.DeleteItem(ctx, userID, storeID, itemID); err != nil {
		span.RecordError(err)
		slog.Error("failed to delete store item", "store_id", storeID, "item_id", itemID, "error", err)
		return err
	}

	s.publishItemChange(ctx, userID, storeID, itemID)
	return nil
}

func validateStoreInput(in *StoreInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return pkgerrors.NewValidationError("name", "name is required")
	}
	if in.Items == nil {
		return pkgerrors.NewValidationError("items", "items are required")
	}
	return normalizeItems(in.Items)
}

func (s *storeService) publishItemChange(ctx context.Context, userID, storeID, itemID int64) {
	s.publish(ctx, kafka.Event{
		Type:    kafka.EventStoreUpdated,
		Key:     storeID,
		Payload: map[string]interface{}{"store_id": storeID, "user_id": userID, "item_id": itemID},
	})
}

func (s *storeService) publish(ctx context.Context, event kafka.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("failed to publish event", "event_type", event.Type, "key", event.Key, "error", err)
	}
}
