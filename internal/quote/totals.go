package quote

import (
	"github.com/shopspring/decimal"
)

// DefaultLaborRate is the hourly labor rate used until one is configured.
const DefaultLaborRate int64 = 55000

// DefaultVATRate is the value-added tax rate applied to the subtotal.
var DefaultVATRate = decimal.New(1, -1)

// Totals are the amounts of a quote, in minor currency units.
type Totals struct {
	PartsTotal int64 `json:"partsTotal"`
	LaborTotal int64 `json:"laborTotal"`
	Subtotal   int64 `json:"subtotal"`
	VAT        int64 `json:"vat"`
	GrandTotal int64 `json:"grandTotal"`
}

// LaborCost is the labor charge of one line: zero when labor is included,
// otherwise hours times rate rounded half up to a whole unit.
func LaborCost(p SelectedPart, laborRate int64) int64 {
	if p.IsIncluded {
		return 0
	}
	return decimal.NewFromFloat(p.LaborHours).
		Mul(decimal.NewFromInt(laborRate)).
		Round(0).
		IntPart()
}

// ComputeTotals sums parts and labor and applies vatRate to the subtotal.
// A zero vatRate yields a quote without tax.
func ComputeTotals(parts []SelectedPart, laborRate int64, vatRate decimal.Decimal) Totals {
	var t Totals
	for _, p := range parts {
		t.PartsTotal += p.Price
		t.LaborTotal += LaborCost(p, laborRate)
	}
	t.Subtotal = t.PartsTotal + t.LaborTotal
	t.VAT = decimal.NewFromInt(t.Subtotal).Mul(vatRate).Round(0).IntPart()
	t.GrandTotal = t.Subtotal + t.VAT
	return t
}
