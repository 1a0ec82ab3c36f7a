package yaml

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/momoledger/pkg/api"
)

func writeAll(t *testing.T, path string, records ...*api.TransactionRecord) {
	t.Helper()
	w, err := New(Config{FilePath: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make(chan *api.TransactionRecord, len(records))
	for _, r := range records {
		in <- r
	}
	close(in)
	if err := w.Write(context.Background(), in, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	balance := int64(1000)
	ts := time.Date(2024, 5, 10, 14, 30, 58, 0, time.UTC)

	writeAll(t, path, &api.TransactionRecord{MessageID: "1", Timestamp: ts, Sender: "M-Money", Type: api.TypeAirtime, Balance: &balance, Status: api.StatusFailed})
	writeAll(t, path, &api.TransactionRecord{MessageID: "2", Timestamp: ts, Sender: "M-Money", Type: api.TypeWithdrawal, Status: api.StatusSuccess})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening yaml: %v", err)
	}
	defer f.Close()

	var docs []map[string]any
	dec := yaml.NewDecoder(f)
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decoding: %v", err)
		}
		docs = append(docs, doc)
	}

	if len(docs) != 2 {
		t.Fatalf("documents: got %d, want 2", len(docs))
	}
	if docs[0]["message_id"] != "1" || docs[0]["balance"] != 1000 || docs[0]["status"] != "failed" {
		t.Errorf("first document: got %v", docs[0])
	}
	if docs[1]["transaction_type"] != "withdrawal" || docs[1]["amount"] != nil {
		t.Errorf("second document: got %v", docs[1])
	}
}
