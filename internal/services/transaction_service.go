package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/TrustPay/internal/infrastructure/kafka"
	"github.com/honeynil/TrustPay/internal/models"
	"github.com/honeynil/TrustPay/internal/repository"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const transactionListLimit = 50

// InitiateInput names the seller either by id or by public pay-link.
type InitiateInput struct {
	SellerID         int64
	SellerLink       string
	Amount           decimal.Decimal
	RefundableAmount decimal.Decimal
}

// TransactionService records payments between two users. The initiating
// buyer owns a transaction; only the buyer or the seller can see it.
//
// Status changes follow models.StatusType.CanTransition and are not tied to
// a party: either the buyer or the seller may complete, fail or refund a
// transaction. The status is a bookkeeping record, not an escrow release,
// so no party-specific rules are enforced.
type TransactionService interface {
	Initiate(ctx context.Context, buyerID int64, in InitiateInput) (*models.Transaction, error)
	List(ctx context.Context, userID int64) ([]models.TransactionView, error)
	Get(ctx context.Context, userID, id int64) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, userID, id int64, status models.StatusType) (*models.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
}

type transactionService struct {
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
	publisher       kafka.Publisher
}

func NewTransactionService(
	userRepo repository.UserRepository,
	transactionRepo repository.TransactionRepository,
	publisher kafka.Publisher,
) *transactionService {
	return &transactionService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		publisher:       publisher,
	}
}

func (s *transactionService) Initiate(ctx context.Context, buyerID int64, in InitiateInput) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "Initiate")
	defer span.End()

	if err := validateMoney("amount", in.Amount, false); err != nil {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, err
	}
	if err := validateMoney("refundableAmount", in.RefundableAmount, true); err != nil {
		span.SetStatus(codes.Error, "invalid refundable amount")
		return nil, err
	}
	if in.RefundableAmount.GreaterThan(in.Amount) {
		span.SetStatus(codes.Error, "refundable exceeds amount")
		return nil, pkgerrors.NewValidationError("refundableAmount", "must not exceed amount")
	}

	seller, err := s.resolveSeller(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "seller lookup failed")
		slog.Error("failed to resolve seller", "buyer_id", buyerID, "seller_id", in.SellerID, "error", err)
		return nil, err
	}
	if seller.ID == buyerID {
		span.SetStatus(codes.Error, "self transaction")
		return nil, pkgerrors.ErrSelfTransaction
	}
	span.SetAttributes(attribute.Int64("buyer_id", buyerID), attribute.Int64("seller_id", seller.ID))

	tx := &models.Transaction{
		SellerID:         seller.ID,
		BuyerID:          buyerID,
		Amount:           in.Amount,
		RefundableAmount: in.RefundableAmount,
		Status:           models.StatusPending,
	}
	if _, err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		slog.Error("failed to create transaction", "buyer_id", buyerID, "seller_id", seller.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.Event{
		Type:    kafka.EventTransactionInitiated,
		Key:     tx.ID,
		Payload: tx,
	})

	slog.Info("transaction initiated", "transaction_id", tx.ID, "buyer_id", buyerID, "seller_id", seller.ID, "amount", tx.Amount.String())
	return tx, nil
}

func (s *transactionService) resolveSeller(ctx context.Context, in InitiateInput) (*models.User, error) {
	link := strings.TrimSpace(in.SellerLink)
	switch {
	case link != "":
		return s.userRepo.GetByUniqueLink(ctx, link)
	case in.SellerID > 0:
		return s.userRepo.GetByID(ctx, in.SellerID)
	default:
		return nil, pkgerrors.NewValidationError("sellerId", "sellerId or sellerLink is required")
	}
}

func (s *transactionService) List(ctx context.Context, userID int64) ([]models.TransactionView, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	views, err := s.transactionRepo.ListByParty(ctx, userID, transactionListLimit)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list transactions", "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("transactions listed", "user_id", userID, "count", len(views))
	return views, nil
}

func (s *transactionService) Get(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !tx.HasParty(userID) {
		slog.Warn("transaction access denied", "transaction_id", id, "user_id", userID)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *transactionService) UpdateStatus(ctx context.Context, userID, id int64, status models.StatusType) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "UpdateStatus")
	defer span.End()

	if !status.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, pkgerrors.ErrInvalidTransactionState
	}

	tx, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !tx.Status.CanTransition(status) {
		span.SetStatus(codes.Error, "illegal transition")
		return nil, fmt.Errorf("%w: %s -> %s", pkgerrors.ErrIllegalTransition, tx.Status, status)
	}
	if status == models.StatusRefunded && tx.RefundableAmount.IsZero() {
		span.SetStatus(codes.Error, "nothing refundable")
		return nil, fmt.Errorf("%w: transaction has no refundable amount", pkgerrors.ErrIllegalTransition)
	}

	if err := s.transactionRepo.UpdateStatus(ctx, id, tx.Status, status); err != nil {
		span.RecordError(err)
		slog.Error("failed to update transaction status", "transaction_id", id, "user_id", userID, "error", err)
		return nil, err
	}

	previous := tx.Status
	updated, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.Event{
		Type: kafka.EventTransactionStatusChanged,
		Key:  id,
		Payload: map[string]interface{}{
			"transaction_id": id,
			"from":           previous,
			"to":             status,
			"changed_by":     userID,
		},
	})

	slog.Info("transaction status changed", "transaction_id", id, "from", previous, "to", status, "user_id", userID)
	return updated, nil
}

func (s *transactionService) Delete(ctx context.Context, userID, id int64) error {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if tx.BuyerID != userID {
		slog.Warn("transaction delete denied", "transaction_id", id, "user_id", userID)
		return pkgerrors.ErrTransactionNotFound
	}
	if tx.Status != models.StatusPending {
		return pkgerrors.ErrTransactionNotPending
	}

	if err := s.transactionRepo.DeletePending(ctx, id, userID); err != nil {
		span.RecordError(err)
		slog.Error("failed to delete transaction", "transaction_id", id, "user_id", userID, "error", err)
		return err
	}

	s.publish(ctx, kafka.Event{
		Type:    kafka.EventTransactionDeleted,
		Key:     id,
		Payload: map[string]interface{}{"transaction_id": id, "buyer_id": userID},
	})

	slog.Info("transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

func (s *transactionService) publish(ctx context.Context, event kafka.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("failed to publish event", "event_type", event.Type, "key", event.Key, "error", err)
	}
}
