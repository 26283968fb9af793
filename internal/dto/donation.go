package dto

import (
	"github.com/shopspring/decimal"

	"github.com/xralks/Bancodealimentos/internal/calc"
	"github.com/xralks/Bancodealimentos/internal/models"
)

// ConfirmDonationRequest disburses stock of a product to an institution.
type ConfirmDonationRequest struct {
	ProductID       string          `json:"product_id" validate:"required,uuid"`
	QuantityKg      decimal.Decimal `json:"quantity_kg"`
	InstitutionID   string          `json:"institution_id" validate:"required,uuid"`
	InstitutionName string          `json:"institution_name" validate:"omitempty,max=160"`
}

// DonationListResponse wraps the ledger listing.
type DonationListResponse struct {
	Items []models.DonationLedgerEntry `json:"items"`
	Count int                          `json:"count"`
}

// StockResponse is the reconciled inventory view.
type StockResponse struct {
	Inventory calc.Inventory `json:"inventory"`
}
