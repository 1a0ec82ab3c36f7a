package json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
)

func write(t *testing.T, w *Writer, ids ...string) {
	t.Helper()
	in := make(chan *api.TransactionRecord, len(ids))
	for _, id := range ids {
		ref := "TX" + id
		in <- &api.TransactionRecord{
			MessageID: id,
			Timestamp: time.UnixMilli(1715351458724).UTC(),
			Sender:    "M-Money",
			Type:      api.TypeAirtime,
			Reference: &ref,
			Status:    api.StatusFailed,
		}
	}
	close(in)
	if err := w.Write(context.Background(), in, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestWriter_Dedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	w, err := New(Config{FilePath: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	write(t, w, "1", "2", "1")
	if w.RecordCount() != 2 {
		t.Errorf("count: got %d, want 2", w.RecordCount())
	}

	// Reopening picks up existing records.
	w, err = New(Config{FilePath: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	write(t, w, "2", "3")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records: got %d, want 3", len(got))
	}
	if got[0]["transaction_type"] != "airtime" || got[0]["reference"] != "TX1" || got[0]["amount"] != nil {
		t.Errorf("first record: got %v", got[0])
	}
}

func TestNew_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{FilePath: path}, nil); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestWriter_UnencodableRecordDoesNotPoisonLaterBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := New(Config{FilePath: path, BatchSize: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := make(chan *api.TransactionRecord, 3)
	in <- &api.TransactionRecord{MessageID: "bad", Timestamp: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), Type: api.TypeIncoming}
	in <- &api.TransactionRecord{MessageID: "1", Timestamp: time.UnixMilli(1715351458724).UTC(), Type: api.TypeIncoming}
	in <- &api.TransactionRecord{MessageID: "2", Timestamp: time.UnixMilli(1715351458725).UTC(), Type: api.TypeIncoming}
	close(in)

	acks := make(chan string, 3)
	if err := w.Write(context.Background(), in, acks); err != nil {
		t.Fatalf("Write: %v", err)
	}
	close(acks)

	var acked []string
	for id := range acks {
		acked = append(acked, id)
	}
	if len(acked) != 2 || acked[0] != "1" || acked[1] != "2" {
		t.Errorf("acks: got %v, want [1 2]", acked)
	}
	if w.RecordCount() != 2 {
		t.Errorf("count: got %d, want 2", w.RecordCount())
	}
	if n := w.buffered.Failed(); n != 1 {
		t.Errorf("failed: got %d, want 1", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("records in file: got %d, want 2", len(got))
	}
}
