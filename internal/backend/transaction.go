package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/shopspring/decimal"
)

// Item is a normalized transaction line.
type Item struct {
	ProductID int             `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (it Item) Amount() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Transaction is the normalized record behind GET /api/detail-transaction/{code}.
type Transaction struct {
	ID        int             `json:"id,omitempty"`
	Code      string          `json:"transaction_code"`
	Status    Status          `json:"status"`
	RawStatus string          `json:"raw_status"`
	Method    string          `json:"payment_method,omitempty"`
	Seller    string          `json:"seller,omitempty"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
	Items     []Item          `json:"items"`
}

type object = map[string]json.RawMessage

// NormalizeTransaction unwraps the transaction record from a response body.
// Locations are tried in order: "transaction", "data", then the body itself
// when it carries a transaction_code. Anything else is ErrTransactionNotFound.
func NormalizeTransaction(body []byte) (Transaction, error) {
	var top object
	if err := json.Unmarshal(body, &top); err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	var rec object
	switch {
	case isObject(top["transaction"]):
		_ = json.Unmarshal(top["transaction"], &rec)
	case isObject(top["data"]):
		_ = json.Unmarshal(top["data"], &rec)
	case present(top["transaction_code"]):
		rec = top
	}
	if rec == nil {
		return Transaction{}, ErrTransactionNotFound
	}

	t := Transaction{
		ID:        catalog.Int(rec["id"]),
		Code:      str(rec["transaction_code"]),
		RawStatus: str(rec["status"]),
		Method:    firstString(rec, "metode_pembayaran", "payment_method"),
		Seller:    str(rec["seller"]),
		Total:     catalog.Decimal(rec["total"]),
		CreatedAt: parseTime(str(rec["created_at"])),
		Items:     normalizeItems(firstArray(rec, "items", "transaction_items", "transactionItems", "details")),
	}
	t.Status = ParseStatus(t.RawStatus)
	return t, nil
}

// normalizeItems maps loosely shaped lines. Name: product.name, name,
// product_name. Price: price, product.price, product_price. Quantity:
// quantity, qty.
func normalizeItems(raw []json.RawMessage) []Item {
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		var o object
		if json.Unmarshal(r, &o) != nil {
			continue
		}
		var prod object
		if isObject(o["product"]) {
			_ = json.Unmarshal(o["product"], &prod)
		}

		it := Item{ProductID: catalog.Int(o["id_product"])}
		if it.ProductID == 0 {
			it.ProductID = catalog.Int(o["product_id"])
		}
		it.Name = str(prod["name"])
		if it.Name == "" {
			it.Name = firstString(o, "name", "product_name")
		}
		if it.Name == "" {
			it.Name = "Unknown Product"
		}
		it.Price = catalog.Decimal(o["price"])
		if it.Price.IsZero() {
			it.Price = catalog.Decimal(prod["price"])
		}
		if it.Price.IsZero() {
			it.Price = catalog.Decimal(o["product_price"])
		}
		it.Quantity = catalog.Int(o["quantity"])
		if it.Quantity == 0 {
			it.Quantity = catalog.Int(o["qty"])
		}
		out = append(out, it)
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}

func isArray(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "[")
}

func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != `""`
}

func str(raw json.RawMessage) string {
	if !present(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func firstString(o object, keys ...string) string {
	for _, k := range keys {
		if s := str(o[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstArray(o object, keys ...string) []json.RawMessage {
	for _, k := range keys {
		if !isArray(o[k]) {
			continue
		}
		var arr []json.RawMessage
		if json.Unmarshal(o[k], &arr) == nil && len(arr) > 0 {
			return arr
		}
	}
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) time.Time {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
