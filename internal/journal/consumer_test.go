package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/telava-pos/internal/backend"
	kafkax "github.com/ariefcatur/telava-pos/internal/kafka"
	"github.com/ariefcatur/telava-pos/internal/sales"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	got []Entry
	err error
}

func (f *fakeRepo) Record(_ context.Context, e Entry) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.got = append(f.got, e)
	return true, nil
}

type fakeDedup struct {
	seen     map[string]bool
	released []string
}

func (d *fakeDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *fakeDedup) Release(_ context.Context, id string) error {
	delete(d.seen, id)
	d.released = append(d.released, id)
	return nil
}

func message(t *testing.T, id, eventType string, p sales.SalePayload) kafkago.Message {
	t.Helper()
	env := sales.Envelope{EventID: id, EventType: eventType, EventVersion: 1, CorrelationID: p.TransactionCode, Payload: kafkax.MustMarshal(p)}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleSaleEvent(t *testing.T) {
	repo := &fakeRepo{}
	dd := &fakeDedup{seen: map[string]bool{}}
	svc := &Service{Repo: repo, Dedup: dd}

	created := message(t, "ev-1", sales.EventSaleCreated, sales.SalePayload{TransactionCode: "TRX-1", Method: "cash", Status: "PAID", Total: decimal.NewFromInt(28000)})
	if err := svc.HandleSaleEvent(context.Background(), created); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// redelivery is deduplicated
	if err := svc.HandleSaleEvent(context.Background(), created); err != nil {
		t.Fatalf("handle again: %v", err)
	}
	if len(repo.got) != 1 {
		t.Fatalf("entries = %d", len(repo.got))
	}
	if e := repo.got[0]; e.Status != backend.StatusPaid || e.Code != "TRX-1" || e.RecordedAt.IsZero() {
		t.Fatalf("unexpected entry %+v", e)
	}

	expired := message(t, "ev-2", sales.EventSaleExpired, sales.SalePayload{Status: "expired", TransactionCode: "TRX-2"})
	_ = svc.HandleSaleEvent(context.Background(), expired)
	if repo.got[1].Status != backend.StatusExpired {
		t.Fatalf("unexpected entry %+v", repo.got[1])
	}
}

func TestHandleSaleEvent_SkipsJunk(t *testing.T) {
	repo := &fakeRepo{}
	svc := &Service{Repo: repo}
	for _, m := range []kafkago.Message{
		{Value: []byte("not json")},
		message(t, "ev-3", "SomethingElse", sales.SalePayload{TransactionCode: "TRX-1"}),
		message(t, "ev-4", sales.EventSaleCreated, sales.SalePayload{}),
	} {
		if err := svc.HandleSaleEvent(context.Background(), m); err != nil {
			t.Fatalf("junk should be committed past: %v", err)
		}
	}
	if len(repo.got) != 0 {
		t.Fatalf("recorded junk: %+v", repo.got)
	}
}

func TestHandleSaleEvent_ReleasesOnFailure(t *testing.T) {
	dd := &fakeDedup{seen: map[string]bool{}}
	svc := &Service{Repo: &fakeRepo{err: errors.New("db down")}, Dedup: dd}
	m := message(t, "ev-5", sales.EventSaleSettled, sales.SalePayload{TransactionCode: "TRX-5"})
	if err := svc.HandleSaleEvent(context.Background(), m); err == nil {
		t.Fatal("expected error so the offset is not committed")
	}
	if len(dd.released) != 1 || dd.seen["ev-5"] {
		t.Fatal("dedup claim should be released for the retry")
	}
}
