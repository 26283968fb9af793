package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationRecord is an immutable ledger entry for a disbursement to an institution.
type DonationRecord struct {
	ID              string          `db:"id" json:"id"`
	ProductID       string          `db:"product_id" json:"product_id"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity_kg"`
	InstitutionID   string          `db:"institution_id" json:"institution_id"`
	InstitutionName string          `db:"institution_name" json:"institution_name"`
	CreatedBy       string          `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// DonationLedgerEntry decorates a record with product details for listings.
type DonationLedgerEntry struct {
	DonationRecord
	ProductName string `db:"product_name" json:"product_name"`
	Category    string `db:"category" json:"category"`
}

// DonationTotal is the donated sum for a product.
type DonationTotal struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Total     decimal.Decimal `db:"total" json:"total_kg"`
}

// DonationFilter constrains ledger listings.
type DonationFilter struct {
	ProductID     string
	InstitutionID string
	Limit         int
	Offset        int
}

// Institution is a selectable donation recipient.
type Institution struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
