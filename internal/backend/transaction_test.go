package backend

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeTransaction_Shapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"transaction key", `{"transaction": {"transaction_code": "TRX-1", "status": "paid"}}`, "TRX-1"},
		{"data key", `{"success": true, "data": {"transaction_code": "TRX-2", "status": "PENDING"}}`, "TRX-2"},
		{"top level", `{"transaction_code": "TRX-3", "status": "expired"}`, "TRX-3"},
		{"transaction wins over data", `{"transaction": {"transaction_code": "A"}, "data": {"transaction_code": "B"}}`, "A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trx, err := NormalizeTransaction([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if trx.Code != tc.code {
				t.Fatalf("want code %s got %s", tc.code, trx.Code)
			}
		})
	}
}

func TestNormalizeTransaction_NotFound(t *testing.T) {
	for _, body := range []string{`{}`, `{"data": null}`, `{"data": []}`, `[]`, `not json`, `{"message": "ok"}`} {
		_, err := NormalizeTransaction([]byte(body))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("body %s: expected not found, got %v", body, err)
		}
	}
}

func TestNormalizeTransaction_Items(t *testing.T) {
	body := `{"data": {
		"transaction_code": "TRX-9",
		"status": "SUCCES",
		"metode_pembayaran": "qris",
		"items": [],
		"transaction_items": [
			{"product": {"name": "Kopi", "price": "10000"}, "qty": 2},
			{"name": "Roti", "price": 5000, "quantity": "1"},
			{"product_name": "Teh", "product_price": "3000", "quantity": 3},
			{}
		],
		"details": [{"name": "ignored", "price": 1, "quantity": 1}]
	}}`
	trx, err := NormalizeTransaction([]byte(body))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if trx.Status != StatusPaid || trx.RawStatus != "SUCCES" || trx.Method != "qris" {
		t.Fatalf("unexpected header %+v", trx)
	}
	if len(trx.Items) != 4 {
		t.Fatalf("expected transaction_items to be used, got %+v", trx.Items)
	}
	want := []Item{
		{Name: "Kopi", Price: decimal.NewFromInt(10000), Quantity: 2},
		{Name: "Roti", Price: decimal.NewFromInt(5000), Quantity: 1},
		{Name: "Teh", Price: decimal.NewFromInt(3000), Quantity: 3},
		{Name: "Unknown Product", Price: decimal.Zero, Quantity: 0},
	}
	for i, w := range want {
		got := trx.Items[i]
		if got.Name != w.Name || !got.Price.Equal(w.Price) || got.Quantity != w.Quantity {
			t.Fatalf("item %d: want %+v got %+v", i, w, got)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"paid": StatusPaid, "PAID": StatusPaid, "succes": StatusPaid, "Success": StatusPaid,
		"completed": StatusPaid, "pending": StatusPending, "EXPIRED": StatusExpired,
		"cancelled": StatusCancelled, "refunded": StatusUnknown, "": StatusUnknown,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusPending, StatusPaid) {
		t.Fatal("pending -> paid must be allowed")
	}
	if CanTransition(StatusPaid, StatusPending) {
		t.Fatal("paid is terminal")
	}
	if CanTransition(StatusExpired, StatusPaid) {
		t.Fatal("expired is terminal")
	}
}
