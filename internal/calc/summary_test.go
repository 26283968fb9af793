package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantitySummary(t *testing.T) {
	summary := QuantitySummary([]SummaryItem{
		{Category: "Fruta", Name: "Manzana", Quantity: kg("2.50")},
		{Category: "Verdura", Name: "Papa", Quantity: kg("10")},
	})
	assert.Equal(t, "Fruta: Manzana (2.5 kg), Verdura: Papa (10 kg)", summary)
	assert.Empty(t, QuantitySummary(nil))
}
