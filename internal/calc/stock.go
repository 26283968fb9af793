package calc

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/xralks/Bancodealimentos/internal/models"
)

// QuantityScale is the number of decimal places stored for kilogram quantities.
const QuantityScale = 3

// MaxQuantity is the exclusive upper bound of a stored kilogram quantity.
var MaxQuantity = decimal.New(1, 9)

var (
	ErrQuantityNotPositive = errors.New("quantity_kg must be greater than zero")
	ErrQuantityTooPrecise  = errors.New("quantity_kg allows at most 3 decimal places")
	ErrQuantityTooLarge    = errors.New("quantity_kg must be lower than 1000000000")
)

// CheckQuantity reports whether q fits the NUMERIC(12,3) quantity columns.
func CheckQuantity(q decimal.Decimal) error {
	switch {
	case !q.IsPositive():
		return ErrQuantityNotPositive
	case !q.Equal(q.Round(QuantityScale)):
		return ErrQuantityTooPrecise
	case q.GreaterThanOrEqual(MaxQuantity):
		return ErrQuantityTooLarge
	}
	return nil
}

// StockLine is one pledged product line as read for reconciliation.
type StockLine struct {
	PostID      string
	ProductID   string
	ProductName string
	Category    string
	Quantity    decimal.Decimal
	Stock       models.StockStatus
}

// Donation is the minimal ledger view needed to reconcile stock.
type Donation struct {
	ProductID string
	Quantity  decimal.Decimal
}

// StockEntry is the reconciled position of one product.
type StockEntry struct {
	TotalPledged decimal.Decimal `json:"total_pledged_kg"`
	Available    decimal.Decimal `json:"available_kg"`
	PostID       string          `json:"post_id"`
	ProductID    string          `json:"product_id"`
}

// Inventory maps category -> product name -> reconciled entry.
type Inventory map[string]map[string]StockEntry

// Reconcile computes pledged and available kilograms per product from received
// lines and the full donation ledger. Lines not yet received, or lacking a name or
// category, are ignored. Available is floored at zero. PostID and ProductID are
// taken from the first qualifying line of each group. Inputs are not modified.
func Reconcile(lines []StockLine, donations []Donation) Inventory {
	donated := DonatedByProduct(donations)

	inv := make(Inventory)
	for _, line := range lines {
		if line.Stock != models.StockReceived || line.ProductName == "" || line.Category == "" {
			continue
		}
		products, ok := inv[line.Category]
		if !ok {
			products = make(map[string]StockEntry)
			inv[line.Category] = products
		}
		entry, ok := products[line.ProductName]
		if !ok {
			entry = StockEntry{TotalPledged: decimal.Zero, PostID: line.PostID, ProductID: line.ProductID}
		}
		entry.TotalPledged = entry.TotalPledged.Add(line.Quantity)
		products[line.ProductName] = entry
	}

	for category, products := range inv {
		for name, entry := range products {
			entry.Available = ClampAvailable(entry.TotalPledged, donated[entry.ProductID])
			inv[category][name] = entry
		}
	}
	return inv
}

// DonatedByProduct sums ledger quantities per product.
func DonatedByProduct(donations []Donation) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(donations))
	for _, d := range donations {
		totals[d.ProductID] = totals[d.ProductID].Add(d.Quantity)
	}
	return totals
}

// ClampAvailable returns max(pledged - donated, 0).
func ClampAvailable(pledged, donated decimal.Decimal) decimal.Decimal {
	available := pledged.Sub(donated)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Find returns the entry whose ProductID matches productID.
func (inv Inventory) Find(productID string) (StockEntry, bool) {
	for _, products := range inv {
		for _, entry := range products {
			if entry.ProductID == productID {
				return entry, true
			}
		}
	}
	return StockEntry{}, false
}

// AvailableFor returns the available kilograms of productID, zero when the product
// has no received stock.
func (inv Inventory) AvailableFor(productID string) decimal.Decimal {
	entry, ok := inv.Find(productID)
	if !ok {
		return decimal.Zero
	}
	return entry.Available
}
