// Package idr formats rupiah amounts the way receipts and reports show them.
package idr

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders whole rupiah with dot grouping: Rp10.000, -Rp500.
func Format(d decimal.Decimal) string {
	r := d.Round(0)
	s := r.Abs().StringFixed(0)
	var g strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			g.WriteByte('.')
		}
		g.WriteRune(c)
	}
	if r.IsNegative() {
		return "-Rp" + g.String()
	}
	return "Rp" + g.String()
}
