package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.committed...)
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "pos.sales", Partition: partition, Offset: offset}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsumer_FailedMessageRetriedBeforeCommit(t *testing.T) {
	fr := &fakeReader{queue: []kafka.Message{msg(0, 10), msg(0, 11), msg(1, 7)}}
	c := newConsumer(fr, 4)
	c.base, c.max = time.Millisecond, 4*time.Millisecond

	var mu sync.Mutex
	attempts := map[int64]int{}
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 10 && attempts[m.Offset] < 3 {
			return errors.New("db down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	waitFor(t, func() bool { return len(fr.commits()) == 3 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}

	var p0 []int64
	for _, m := range fr.commits() {
		if m.Partition == 0 {
			p0 = append(p0, m.Offset)
		}
	}
	if len(p0) != 2 || p0[0] != 10 || p0[1] != 11 {
		t.Fatalf("partition 0 commits out of order: %v", p0)
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts[10] != 3 || attempts[11] != 1 {
		t.Fatalf("attempts = %v", attempts)
	}
	if !fr.closed {
		t.Fatal("reader not closed")
	}
}

func TestConsumer_StopDuringRetryLeavesMessageUncommitted(t *testing.T) {
	fr := &fakeReader{queue: []kafka.Message{msg(0, 1), msg(0, 2)}}
	c := newConsumer(fr, 2)
	c.base, c.max = time.Millisecond, time.Millisecond

	tried := make(chan struct{}, 1)
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset == 1 {
			select {
			case tried <- struct{}{}:
			default:
			}
			return errors.New("db down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	<-tried
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := fr.commits(); len(got) != 0 {
		t.Fatalf("nothing may be committed past a failing message, got %v", got)
	}
}
