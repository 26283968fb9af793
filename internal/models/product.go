package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus marks whether a pledged line has been picked up into the warehouse.
type StockStatus string

const (
	StockPending  StockStatus = "pending"
	StockReceived StockStatus = "received"
)

// Valid reports whether s is a known stock status.
func (s StockStatus) Valid() bool {
	return s == StockPending || s == StockReceived
}

// Toggle returns the opposite stock status.
func (s StockStatus) Toggle() StockStatus {
	if s == StockReceived {
		return StockPending
	}
	return StockReceived
}

// Product is a catalogue item. Category groups products, e.g. "Fruta" or "Verdura".
type Product struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PostProduct is the quantity of a product pledged by a post, in kilograms.
type PostProduct struct {
	ID          string          `db:"id" json:"id"`
	PostID      string          `db:"post_id" json:"post_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity_kg"`
	StockStatus StockStatus     `db:"stock_status" json:"stock_status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// PostProductLine is a PostProduct joined with its product's name and category.
type PostProductLine struct {
	PostProduct
	ProductName string `db:"product_name" json:"product_name"`
	Category    string `db:"category" json:"category"`
}
