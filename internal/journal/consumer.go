package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	kafkax "github.com/ariefcatur/telava-pos/internal/kafka"
	"github.com/ariefcatur/telava-pos/internal/sales"
	kafkago "github.com/segmentio/kafka-go"
)

type Recorder interface {
	Record(ctx context.Context, e Entry) (bool, error)
}

// Deduper claims event ids; *redisx.Dedup satisfies it.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Service turns sale events into journal entries. It is the kafka.Handler
// of cmd/journal.
type Service struct {
	Repo  Recorder
	Dedup Deduper
}

func (s *Service) HandleSaleEvent(ctx context.Context, m kafkago.Message) error {
	var env sales.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message: log and commit past it
		log.Printf("journal: skip offset %d: %v", m.Offset, err)
		return nil
	}
	status, ok := statusFor(env.EventType)
	if !ok {
		return nil
	}

	if s.Dedup != nil && env.EventID != "" {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			log.Printf("journal: dedup unavailable, relying on status guard: %v", err)
		} else if !first {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[sales.SalePayload](env.Payload)
	if err != nil {
		log.Printf("journal: skip %s: %v", env.EventID, err)
		return nil
	}
	if p.TransactionCode == "" {
		p.TransactionCode = env.CorrelationID
	}
	if p.TransactionCode == "" {
		log.Printf("journal: skip %s: no transaction code", env.EventID)
		return nil
	}
	if st := backend.ParseStatus(p.Status); st != backend.StatusUnknown {
		status = st
	}
	at := env.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	changed, err := s.Repo.Record(ctx, Entry{
		Code:       p.TransactionCode,
		Method:     p.Method,
		Status:     status,
		Seller:     p.Seller,
		Subtotal:   p.Subtotal,
		Tax:        p.Tax,
		Total:      p.Total,
		RecordedAt: at,
	})
	if err != nil {
		if s.Dedup != nil && env.EventID != "" {
			_ = s.Dedup.Release(ctx, env.EventID)
		}
		return fmt.Errorf("record %s: %w", p.TransactionCode, err)
	}
	if changed {
		log.Printf("journal: %s %s -> %s", env.EventType, p.TransactionCode, status)
	}
	return nil
}

func statusFor(eventType string) (backend.Status, bool) {
	switch eventType {
	case sales.EventSaleCreated:
		return backend.StatusPending, true
	case sales.EventSaleSettled:
		return backend.StatusPaid, true
	case sales.EventSaleExpired:
		return backend.StatusExpired, true
	case sales.EventSaleCancelled:
		return backend.StatusCancelled, true
	}
	return "", false
}
