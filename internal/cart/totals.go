package cart

import "github.com/shopspring/decimal"

// TaxRate is the fixed 12% sales tax.
var TaxRate = decimal.New(12, -2)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute derives the totals of lines. Never stored, always recomputed.
func Compute(lines []Line) Totals {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(l.Amount())
	}
	return FromSubtotal(sub)
}

func FromSubtotal(sub decimal.Decimal) Totals {
	tax := sub.Mul(TaxRate)
	return Totals{Subtotal: sub, Tax: tax, Total: sub.Add(tax)}
}
