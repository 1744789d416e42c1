package kafka

import (
	"context"
	"testing"
	"time"
)

// The broker address is unroutable; these tests only exercise the inbox
// bookkeeping, writes fail and are logged.
func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "t", 1)
	p.Close()
	p.Close()
	p.Publish([]byte("k"), []byte("v"))
	if len(p.inbox) != 0 {
		t.Fatal("message queued after close")
	}
}

func TestProducer_FullInboxDoesNotBlock(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "t", 1)
	done := make(chan struct{})
	go func() {
		p.Publish([]byte("a"), []byte("1"))
		p.Publish([]byte("b"), []byte("2"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full inbox")
	}
	if len(p.inbox) != 1 {
		t.Fatalf("inbox len %d", len(p.inbox))
	}
}

func TestProducer_StartStopsOnContext(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "t", 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	select {
	case <-p.closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("drain loop did not exit")
	}
}
