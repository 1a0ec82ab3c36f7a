package buffered

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
)

type sink struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (s *sink) flush(_ context.Context, records []*api.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.MessageID)
	}
	s.batches = append(s.batches, ids)
	return nil
}

func feed(ids ...string) <-chan *api.TransactionRecord {
	in := make(chan *api.TransactionRecord, len(ids))
	for _, id := range ids {
		in <- &api.TransactionRecord{MessageID: id}
	}
	close(in)
	return in
}

func TestWrite_BatchesAndAcks(t *testing.T) {
	s := &sink{}
	w := New(s.flush, Config{BatchSize: 2, FlushInterval: time.Hour}, nil)

	acks := make(chan string, 10)
	if err := w.Write(context.Background(), feed("a", "b", "c"), acks); err != nil {
		t.Fatalf("Write: %v", err)
	}
	close(acks)

	if len(s.batches) != 2 {
		t.Fatalf("batches: got %d, want 2", len(s.batches))
	}
	if !slices.Equal(s.batches[0], []string{"a", "b"}) || !slices.Equal(s.batches[1], []string{"c"}) {
		t.Errorf("batches: got %v", s.batches)
	}

	var got []string
	for id := range acks {
		got = append(got, id)
	}
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("acks: got %v, want [a b c]", got)
	}
	if w.BufferLen() != 0 {
		t.Errorf("buffer: got %d, want 0", w.BufferLen())
	}
}

func TestWrite_NilAckChan(t *testing.T) {
	s := &sink{}
	w := New(s.flush, Config{BatchSize: 1}, nil)

	if err := w.Write(context.Background(), feed("a"), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(s.batches) != 1 {
		t.Errorf("batches: got %d, want 1", len(s.batches))
	}
}

func TestWrite_FailedFlushIsNotAcked(t *testing.T) {
	errBoom := errors.New("boom")
	s := &sink{err: errBoom}
	w := New(s.flush, Config{BatchSize: 10}, nil)

	acks := make(chan string, 10)
	err := w.Write(context.Background(), feed("a", "b"), acks)
	if !errors.Is(err, errBoom) {
		t.Errorf("error: got %v, want %v", err, errBoom)
	}
	if len(acks) != 0 {
		t.Errorf("acks: got %d, want 0", len(acks))
	}
	if w.Failed() != 2 {
		t.Errorf("failed: got %d, want 2", w.Failed())
	}
}

func TestWrite_FlushesOnCancel(t *testing.T) {
	s := &sink{}
	w := New(s.flush, Config{BatchSize: 10, FlushInterval: time.Hour}, nil)

	in := make(chan *api.TransactionRecord, 1)
	in <- &api.TransactionRecord{MessageID: "a"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Write(ctx, in, nil) }()

	// Wait for the record to be buffered before canceling.
	deadline := time.Now().Add(2 * time.Second)
	for w.BufferLen() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want %v", err, context.Canceled)
	}
	if len(s.batches) != 1 || !slices.Equal(s.batches[0], []string{"a"}) {
		t.Errorf("batches: got %v", s.batches)
	}
}

func TestWrite_IntervalFlush(t *testing.T) {
	s := &sink{}
	w := New(s.flush, Config{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, nil)

	in := make(chan *api.TransactionRecord)
	acks := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- w.Write(context.Background(), in, acks) }()

	in <- &api.TransactionRecord{MessageID: "a"}

	select {
	case id := <-acks:
		if id != "a" {
			t.Errorf("ack: got %q, want a", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for interval flush")
	}

	close(in)
	if err := <-done; err != nil {
		t.Errorf("Write: %v", err)
	}
}
