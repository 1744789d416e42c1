package sales

import (
	"context"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/telava-pos/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Emitter wraps sale payloads into versioned envelopes and publishes them.
type Emitter struct {
	Producer Publisher
	Service  string
}

const eventVersion = 1

func (e *Emitter) Emit(ctx context.Context, eventType string, p SalePayload) {
	if e == nil || e.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		TraceID:       traceID(ctx),
		CorrelationID: p.TransactionCode,
		Payload:       kafkax.MustMarshal(p),
	}
	e.Producer.Publish(PartitionKey(p.TransactionCode), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
}

type traceKey struct{}

// WithTrace tags ctx with the request id that ends up as the envelope trace id.
func WithTrace(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
