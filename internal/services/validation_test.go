package service

import (
	"testing"

	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateMoney(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		allowZero bool
		wantErr   bool
	}{
		{name: "positive", amount: "10.50"},
		{name: "largest storable", amount: "9999999999999999.99"},
		{name: "zero allowed", amount: "0", allowZero: true},
		{name: "zero rejected", amount: "0", wantErr: true},
		{name: "negative", amount: "-0.01", allowZero: true, wantErr: true},
		{name: "sub-cent", amount: "1.001", wantErr: true},
		{name: "seventeen integer digits", amount: "10000000000000000", wantErr: true},
		{name: "far beyond the column", amount: "100000000000000000000000.00", allowZero: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMoney("amount", dec(tt.amount), tt.allowZero)
			if tt.wantErr {
				assert.ErrorIs(t, err, pkgerrors.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
