package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/printer"
	"github.com/shopspring/decimal"
)

// Receipt is a finished sale as rendered by the backend.
type Receipt struct {
	Code     string                `json:"transaction_code"`
	HTML     string                `json:"html"`
	Method   string                `json:"method,omitempty"`
	Seller   string                `json:"seller"`
	Items    []backend.ReceiptItem `json:"items"`
	Totals   cart.Totals           `json:"totals"`
	IssuedAt time.Time             `json:"issued_at"`
}

// Slip turns the receipt into the printable text layout.
func (r Receipt) Slip() printer.Slip {
	lines := make([]printer.SlipLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, printer.SlipLine{Name: it.Name, Qty: it.Quantity, Price: it.Price})
	}
	return printer.Slip{
		Code:     r.Code,
		Seller:   r.Seller,
		Method:   r.Method,
		At:       r.IssuedAt,
		Lines:    lines,
		Subtotal: r.Totals.Subtotal,
		Tax:      r.Totals.Tax,
		Total:    r.Totals.Total,
	}
}

// ReceiptCache keeps encoded receipts by transaction code.
type ReceiptCache interface {
	Get(ctx context.Context, code string) ([]byte, bool, error)
	Put(ctx context.Context, code string, b []byte) error
}

// MemoryCache is the process local ReceiptCache, used when Redis is not set up.
type MemoryCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{m: make(map[string][]byte)} }

func (c *MemoryCache) Get(_ context.Context, code string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[code]
	return b, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, code string, b []byte) error {
	c.mu.Lock()
	c.m[code] = b
	c.mu.Unlock()
	return nil
}

func encodeReceipt(r Receipt) ([]byte, error) { return json.Marshal(r) }

func decodeReceipt(b []byte) (Receipt, error) {
	var r Receipt
	err := json.Unmarshal(b, &r)
	return r, err
}

func receiptItemsFromLines(lines []cart.Line) []backend.ReceiptItem {
	out := make([]backend.ReceiptItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, backend.ReceiptItem{Name: l.Product.Name, Price: l.Product.Price, Quantity: l.Quantity})
	}
	return out
}

// receiptFromItems recomputes the totals from the lines the backend reported
// instead of trusting its total field.
func receiptFromItems(items []backend.Item) ([]backend.ReceiptItem, cart.Totals) {
	out := make([]backend.ReceiptItem, 0, len(items))
	sub := decimal.Zero
	for _, it := range items {
		out = append(out, backend.ReceiptItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
		sub = sub.Add(it.Amount())
	}
	return out, cart.FromSubtotal(sub)
}
