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

const transactionColumns = `t.id, t.seller_id, t.buyer_id, t.amount, t.refundable_amount, t.status, t.created_at, t.updated_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) (id int64, err error) {
	ctx, span, done := track(ctx, "transaction-repository", "CreateTransaction")
	defer func() { done(err) }()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return 0, err
	}
	if err = validateTransaction(tx); err != nil {
		slog.Error("invalid transaction", "method", "Create", "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.Int64("seller_id", tx.SellerID),
		attribute.Int64("buyer_id", tx.BuyerID),
		attribute.String("amount", tx.Amount.String()),
		attribute.String("status", string(tx.Status)),
	)

	now := time.Now().UTC()
	query := `INSERT INTO transactions (seller_id, buyer_id, amount, refundable_amount, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err = r.db.QueryRowContext(ctx, query, tx.SellerID, tx.BuyerID, tx.Amount, tx.RefundableAmount, tx.Status, now, now).Scan(&id)
	if err != nil {
		if isCheckViolation(err) {
			err = fmt.Errorf("%w: transaction violates amount constraints", pkgerrors.ErrValidation)
			return 0, err
		}
		slog.Error("failed to create transaction", "method", "Create", "seller_id", tx.SellerID, "buyer_id", tx.BuyerID, "error", err)
		err = fmt.Errorf("failed to create transaction: %w", err)
		return 0, err
	}

	tx.ID = id
	tx.CreatedAt = now
	tx.UpdatedAt = now
	slog.Info("transaction created", "method", "Create", "id", id, "seller_id", tx.SellerID, "buyer_id", tx.BuyerID, "status", tx.Status)
	return id, nil
}

func validateTransaction(tx *models.Transaction) error {
	if !tx.Status.Valid() {
		return pkgerrors.ErrInvalidTransactionState
	}
	if !tx.Amount.IsPositive() {
		return pkgerrors.NewValidationError("amount", "amount must be positive")
	}
	if tx.RefundableAmount.IsNegative() || tx.RefundableAmount.GreaterThan(tx.Amount) {
		return pkgerrors.NewValidationError("refundableAmount", "refundable amount must be between 0 and amount")
	}
	if tx.SellerID == tx.BuyerID {
		return pkgerrors.ErrSelfTransaction
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (tx *models.Transaction, err error) {
	ctx, span, done := track(ctx, "transaction-repository", "GetTransactionByID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("transaction_id", id))

	var t models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.SellerID, &t.BuyerID, &t.Amount, &t.RefundableAmount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		err = fmt.Errorf("failed to get transaction by id: %w", err)
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) ListByParty(ctx context.Context, userID int64, limit int) (views []models.TransactionView, err error) {
	ctx, span, done := track(ctx, "transaction-repository", "ListTransactionsByParty")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("user_id", userID))

	query := `
		SELECT ` + transactionColumns + `,
			CASE WHEN t.buyer_id = $1 THEN s.username ELSE b.username END AS counterparty
		FROM transactions t
		JOIN users s ON s.id = t.seller_id
		JOIN users b ON b.id = t.buyer_id
		WHERE t.buyer_id = $1 OR t.seller_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByParty", "user_id", userID, "error", err)
		err = fmt.Errorf("failed to list transactions: %w", err)
		return nil, err
	}
	defer rows.Close()

	views = []models.TransactionView{}
	for rows.Next() {
		var t models.Transaction
		var counterparty string
		if err = rows.Scan(&t.ID, &t.SellerID, &t.BuyerID, &t.Amount, &t.RefundableAmount, &t.Status, &t.CreatedAt, &t.UpdatedAt, &counterparty); err != nil {
			err = fmt.Errorf("failed to scan transaction: %w", err)
			return nil, err
		}
		views = append(views, t.ViewFor(userID, counterparty))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to list transactions: %w", err)
		return nil, err
	}
	return views, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, from, to models.StatusType) (err error) {
	ctx, span, done := track(ctx, "transaction-repository", "UpdateTransactionStatus")
	defer func() { done(err) }()
	span.SetAttributes(
		attribute.Int64("transaction_id", id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	query := `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		slog.Error("failed to update transaction status", "method", "UpdateStatus", "transaction_id", id, "error", err)
		err = fmt.Errorf("failed to update transaction status: %w", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to update transaction status: %w", err)
		return err
	}
	if affected == 0 {
		err = pkgerrors.ErrIllegalTransition
		return err
	}

	slog.Info("transaction status updated", "method", "UpdateStatus", "transaction_id", id, "from", from, "to", to)
	return nil
}

func (r *TransactionRepository) DeletePending(ctx context.Context, id, buyerID int64) (err error) {
	ctx, span, done := track(ctx, "transaction-repository", "DeletePendingTransaction")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("transaction_id", id))

	query := `DELETE FROM transactions WHERE id = $1 AND buyer_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, buyerID, models.StatusPending)
	if err != nil {
		slog.Error("failed to delete transaction", "method", "DeletePending", "transaction_id", id, "error", err)
		err = fmt.Errorf("failed to delete transaction: %w", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to delete transaction: %w", err)
		return err
	}
	if affected == 0 {
		err = pkgerrors.ErrTransactionNotPending
		return err
	}

	slog.Info("transaction deleted", "method", "DeletePending", "transaction_id", id, "buyer_id", buyerID)
	return nil
}
