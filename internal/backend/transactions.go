package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ariefcatur/telava-pos/internal/catalog"
)

// CreateTransaction stores the sale. Cash goes to /api/transaction/store;
// transfer and QRIS go to /api/xendit/store which also returns payment_url.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (CreatedTransaction, error) {
	path := "/api/transaction/store"
	if req.Method.Redirects() {
		path = "/api/xendit/store"
	}
	var res CreatedTransaction
	if err := c.postJSON(ctx, path, req, &res); err != nil {
		return CreatedTransaction{}, err
	}
	if !res.Success || res.TransactionCode == "" {
		msg := res.Message
		if msg == "" {
			msg = "no transaction code"
		}
		return CreatedTransaction{}, fmt.Errorf("create transaction: %w: %s", ErrRejected, msg)
	}
	if req.Method.Redirects() && res.PaymentURL == "" {
		return CreatedTransaction{}, fmt.Errorf("create transaction: %w: no payment url", ErrRejected)
	}
	return res, nil
}

// RenderReceipt asks the backend for the receipt HTML of a finished sale.
func (c *Client) RenderReceipt(ctx context.Context, req ReceiptRequest) (string, error) {
	var res struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/xendit/struk/cash", req, &res); err != nil {
		return "", err
	}
	html := str(res.Data)
	if html == "" {
		return "", ErrNoReceipt
	}
	return html, nil
}

func (c *Client) TransactionByCode(ctx context.Context, code string) (Transaction, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/detail-transaction/"+url.PathEscape(code), &raw); err != nil {
		return Transaction{}, err
	}
	return NormalizeTransaction(raw)
}

// ListTransactions reads the history list. The body may be {success, data: []},
// {data: []} or a bare array; a null status is reported as PAID.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/transaction", &raw); err != nil {
		return nil, err
	}
	arr := raw
	if !isArray(raw) {
		var top object
		if json.Unmarshal(raw, &top) != nil || !isArray(top["data"]) {
			return []Transaction{}, nil
		}
		arr = top["data"]
	}
	var recs []object
	if err := json.Unmarshal(arr, &recs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]Transaction, 0, len(recs))
	for _, rec := range recs {
		t := Transaction{
			ID:        catalog.Int(rec["id"]),
			Code:      str(rec["transaction_code"]),
			RawStatus: str(rec["status"]),
			Method:    firstString(rec, "metode_pembayaran", "payment_method"),
			Seller:    str(rec["seller"]),
			Total:     catalog.Decimal(rec["total"]),
			CreatedAt: parseTime(str(rec["created_at"])),
		}
		if t.RawStatus == "" {
			t.RawStatus = string(StatusPaid)
		}
		t.Status = ParseStatus(t.RawStatus)
		out = append(out, t)
	}
	return out, nil
}

// TransactionItems fetches the product lines of a history entry. The lines sit
// under "transactions" or "transaction_product", optionally inside "data", or
// are the body itself.
func (c *Client) TransactionItems(ctx context.Context, id int) ([]Item, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/transaction/"+strconv.Itoa(id), &raw); err != nil {
		return nil, err
	}
	body := raw
	var top object
	if json.Unmarshal(raw, &top) == nil && present(top["data"]) {
		body = top["data"]
	}
	if isArray(body) {
		var arr []json.RawMessage
		_ = json.Unmarshal(body, &arr)
		return normalizeItems(arr), nil
	}
	var o object
	if json.Unmarshal(body, &o) != nil {
		return []Item{}, nil
	}
	return normalizeItems(firstArray(o, "transactions", "transaction_product")), nil
}
