package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusType_CanTransition(t *testing.T) {
	tests := []struct {
		from, to StatusType
		allowed  bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusPending, StatusRefunded, false},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusRefunded, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusType_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, StatusType("PENDING").Valid())
	assert.False(t, StatusType("").Valid())
}

func TestTransaction_ViewFor(t *testing.T) {
	tx := Transaction{ID: 1, SellerID: 2, BuyerID: 3}

	sent := tx.ViewFor(3, "seller")
	assert.Equal(t, DirectionSent, sent.Type)
	assert.Equal(t, "seller", sent.Counterparty)

	received := tx.ViewFor(2, "buyer")
	assert.Equal(t, DirectionReceived, received.Type)

	assert.True(t, tx.HasParty(2))
	assert.True(t, tx.HasParty(3))
	assert.False(t, tx.HasParty(4))
}
