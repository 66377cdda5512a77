package handler

import (
	"net/http"

	"github.com/honeynil/TrustPay/internal/handler/respond"
	"github.com/honeynil/TrustPay/internal/models"
	service "github.com/honeynil/TrustPay/internal/services"
	"github.com/shopspring/decimal"
)

type initiateRequest struct {
	SellerID         int64           `json:"sellerId"`
	SellerLink       string          `json:"sellerLink"`
	Amount           decimal.Decimal `json:"amount"`
	RefundableAmount decimal.Decimal `json:"refundableAmount"`
}

type initiateResponse struct {
	TransactionID int64               `json:"transactionId"`
	Message       string              `json:"message"`
	Transaction   *models.Transaction `json:"transaction"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) InitiateTransaction(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req initiateRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	tx, err := h.transactions.Initiate(r.Context(), claims.UserID, service.InitiateInput{
		SellerID:         req.SellerID,
		SellerLink:       req.SellerLink,
		Amount:           req.Amount,
		RefundableAmount: req.RefundableAmount,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, initiateResponse{
		TransactionID: tx.ID,
		Message:       "Transaction initiated successfully",
		Transaction:   tx,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	views, err := h.transactions.List(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if views == nil {
		views = []models.TransactionView{}
	}
	respond.JSON(w, http.StatusOK, views)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	tx, err := h.transactions.Get(r.Context(), claims.UserID, id)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, tx)
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	tx, err := h.transactions.UpdateStatus(r.Context(), claims.UserID, id, models.StatusType(req.Status))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.transactions.Delete(r.Context(), claims.UserID, id); err != nil {
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Transaction deleted successfully")
}
