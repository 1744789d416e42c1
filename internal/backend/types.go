package backend

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodQRIS     PaymentMethod = "qris"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodCash, MethodTransfer, MethodQRIS:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// Redirects reports whether the method goes through the external payment page.
func (m PaymentMethod) Redirects() bool { return m == MethodTransfer || m == MethodQRIS }

// TransactionItem is one cart line as sent to the store endpoints.
type TransactionItem struct {
	ProductID int             `json:"id_product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
}

type CreateTransactionRequest struct {
	Method PaymentMethod     `json:"metode_pembayaran"`
	Items  []TransactionItem `json:"items"`
}

type CreatedTransaction struct {
	Success         bool   `json:"success"`
	TransactionCode string `json:"transaction_code"`
	PaymentURL      string `json:"payment_url,omitempty"`
	Message         string `json:"message,omitempty"`
}

type ReceiptItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type ReceiptRequest struct {
	TransactionCode string          `json:"transaction_code"`
	Items           []ReceiptItem   `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Seller          string          `json:"seller"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
}

type User struct {
	ID    int    `json:"id"`
	UUID  string `json:"uuid,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	// Bio and Location are kept on the terminal only.
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
