package idr

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":        "Rp0",
		"500":      "Rp500",
		"10000":    "Rp10.000",
		"1234567":  "Rp1.234.567",
		"3000.4":   "Rp3.000",
		"28000.5":  "Rp28.001",
		"-15000":   "-Rp15.000",
		"99999999": "Rp99.999.999",
	}
	for in, want := range cases {
		if got := Format(decimal.RequireFromString(in)); got != want {
			t.Errorf("Format(%s) = %s, want %s", in, got, want)
		}
	}
}
