package sales

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSaleCreated   = "SaleCreated"
	EventSaleSettled   = "SaleSettled"
	EventSaleExpired   = "SaleExpired"
	EventSaleCancelled = "SaleCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // transaction code
	Payload       json.RawMessage `json:"payload"`
}

type Line struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// SalePayload is carried by every sale event. Status is the backend status
// known at emission time (PENDING, PAID, EXPIRED, CANCELLED).
type SalePayload struct {
	TransactionCode string          `json:"transaction_code"`
	Method          string          `json:"method"`
	Status          string          `json:"status"`
	Seller          string          `json:"seller,omitempty"`
	Items           []Line          `json:"items,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
}
