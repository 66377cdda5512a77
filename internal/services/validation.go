package service

import (
	"fmt"
	"strings"

	"github.com/honeynil/TrustPay/internal/models"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	// Columns are NUMERIC(18, 2), leaving 16 digits before the point.
	moneyIntegerDigits = 16
)

var maxMoney = decimal.New(1, moneyIntegerDigits)

func validateMoney(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) {
		if allowZero {
			return pkgerrors.NewValidationError(field, "must not be negative")
		}
		return pkgerrors.NewValidationError(field, "must be positive")
	}
	if !amount.Equal(amount.Round(moneyPlaces)) {
		return pkgerrors.NewValidationError(field, "must have at most 2 decimal places")
	}
	if amount.GreaterThanOrEqual(maxMoney) {
		return pkgerrors.NewValidationError(field, fmt.Sprintf("must be less than %s", maxMoney))
	}
	return nil
}

// normalizeItems validates items in place, trimming names and defaulting the
// item type to product.
func normalizeItems(items []models.StoreItem) error {
	for i := range items {
		item := &items[i]
		item.Name = strings.TrimSpace(item.Name)
		item.Description = strings.TrimSpace(item.Description)
		if item.Type == "" {
			item.Type = models.ItemProduct
		}
		if err := validateItem(item); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(item *models.StoreItem) error {
	if item.Name == "" {
		return pkgerrors.NewValidationError("items.name", "name is required")
	}
	if !item.Type.Valid() {
		return pkgerrors.NewValidationError("items.type", "type must be product or service")
	}
	if err := validateMoney("items.price", item.Price, true); err != nil {
		return err
	}
	if item.Quantity == nil {
		if item.Type == models.ItemProduct {
			return pkgerrors.NewValidationError("items.quantity", "quantity is required for products")
		}
		return nil
	}
	if *item.Quantity < 0 {
		return pkgerrors.NewValidationError("items.quantity", "must not be negative")
	}
	return nil
}
