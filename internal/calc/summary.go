package calc

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SummaryItem is one product line rendered into a post's quantity detail.
type SummaryItem struct {
	Category string
	Name     string
	Quantity decimal.Decimal
}

// QuantitySummary renders "Fruta: Manzana (2.5 kg), Verdura: Papa (10 kg)".
func QuantitySummary(items []SummaryItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s: %s (%s kg)", item.Category, item.Name, item.Quantity.String()))
	}
	return strings.Join(parts, ", ")
}
