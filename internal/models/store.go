package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Name      string      `json:"name"`
	UniqueID  string      `json:"unique_id"`
	Version   int64       `json:"version"`
	Items     []StoreItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type StoreItem struct {
	ID          int64           `json:"id"`
	StoreID     int64           `json:"store_id"`
	Position    int             `json:"position"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    *int64          `json:"quantity"`
	Type        ItemType        `json:"type"`
	Description string          `json:"description"`
}

type ItemType string

const (
	ItemProduct ItemType = "product"
	ItemService ItemType = "service"
)

func (t ItemType) Valid() bool {
	return t == ItemProduct || t == ItemService
}
