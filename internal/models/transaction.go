package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID               int64           `json:"id"`
	SellerID         int64           `json:"seller_id"`
	BuyerID          int64           `json:"buyer_id"`
	Amount           decimal.Decimal `json:"amount"`
	RefundableAmount decimal.Decimal `json:"refundable_amount"`
	Status           StatusType      `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TransactionView is a transaction as seen by one of its parties.
type TransactionView struct {
	Transaction
	Type         DirectionType `json:"type"`
	Counterparty string        `json:"counterparty"`
}

type DirectionType string

const (
	DirectionSent     DirectionType = "sent"
	DirectionReceived DirectionType = "received"
)

type StatusType string

const (
	StatusPending   StatusType = "pending"
	StatusCompleted StatusType = "completed"
	StatusFailed    StatusType = "failed"
	StatusRefunded  StatusType = "refunded"
)

var statusTransitions = map[StatusType][]StatusType{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRefunded},
}

func (s StatusType) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a transaction in status s may move to next.
func (s StatusType) CanTransition(next StatusType) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ViewFor returns the transaction annotated from the perspective of userID.
func (t Transaction) ViewFor(userID int64, counterparty string) TransactionView {
	direction := DirectionReceived
	if t.BuyerID == userID {
		direction = DirectionSent
	}
	return TransactionView{Transaction: t, Type: direction, Counterparty: counterparty}
}

func (t Transaction) HasParty(userID int64) bool {
	return t.BuyerID == userID || t.SellerID == userID
}
