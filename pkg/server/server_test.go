package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/metrics"
	"github.com/ArionMiles/momoledger/pkg/writer/sqlite"
)

func ptr[T any](v T) *T { return &v }

var base = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func fixtures() []*api.TransactionRecord {
	return []*api.TransactionRecord{
		{
			MessageID: "1",
			Timestamp: base.Add(14 * time.Hour),
			Sender:    "M-Money",
			Recipient: ptr("0788123456"),
			Amount:    ptr(int64(5000)),
			Type:      api.TypeIncoming,
			Reference: ptr("ABC123"),
			Status:    api.StatusSuccess,
		},
		{
			MessageID: "2",
			Timestamp: base.Add(24 * time.Hour),
			Sender:    "M-Money",
			Amount:    ptr(int64(2000)),
			Type:      api.TypeAirtime,
			Balance:   ptr(int64(1000)),
			Status:    api.StatusFailed,
		},
		{
			MessageID: "3",
			Timestamp: base.Add(48 * time.Hour),
			Sender:    "M-Money",
			Amount:    ptr(int64(1000)),
			Type:      api.TypeIncoming,
			Status:    api.StatusSuccess,
		},
		{
			MessageID: "4",
			Timestamp: base.AddDate(0, 1, 0),
			Sender:    "M-Money",
			Type:      api.TypeWithdrawal,
			Status:    api.StatusSuccess,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T) *Server {
	t.Helper()

	store, err := sqlite.New(sqlite.Config{Path: filepath.Join(t.TempDir(), "momo.sqlite")}, nil)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(store.Close)

	records := fixtures()
	in := make(chan *api.TransactionRecord, len(records))
	for _, r := range records {
		in <- r
	}
	close(in)
	if err := store.Write(context.Background(), in, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	return New(store, discardLogger(), metrics.New())
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var records []api.TransactionRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.MessageID)
	}
	return ids
}

func TestListTransactions(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"1", "2", "3", "4"}},
		{name: "type", query: "?type=incoming", want: []string{"1", "3"}},
		{name: "unknown type", query: "?type=lottery", want: []string{}},
		{name: "date start", query: "?date_start=2024-05-11", want: []string{"2", "3", "4"}},
		{name: "date end is inclusive", query: "?date_end=2024-05-11", want: []string{"1", "2"}},
		{name: "date range", query: "?date_start=2024-05-11&date_end=2024-05-12", want: []string{"2", "3"}},
		{name: "amount min", query: "?amount_min=2000", want: []string{"1", "2"}},
		{name: "amount max", query: "?amount_max=2000", want: []string{"2", "3"}},
		{name: "non-digit amount ignored", query: "?amount_min=abc&amount_max=-5", want: []string{"1", "2", "3", "4"}},
		{name: "limit", query: "?limit=2", want: []string{"1", "2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/transactions"+tc.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type: got %q, want application/json", ct)
			}
			if got := decodeIDs(t, rec); !slices.Equal(got, tc.want) {
				t.Errorf("ids: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListTransactions_BadRequest(t *testing.T) {
	s := newServer(t)

	for _, query := range []string{
		"?date_start=10/05/2024",
		"?date_end=2024-13-01",
		"?limit=0",
		"?limit=ten",
	} {
		rec := do(t, s, http.MethodGet, "/api/transactions"+query)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want %d", query, rec.Code, http.StatusBadRequest)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Errorf("%s: got body %v (err %v), want an error message", query, body, err)
		}
	}
}

func TestGetTransaction(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/transactions/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	var got api.TransactionRecord
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.MessageID != "2" || got.Type != api.TypeAirtime || got.Status != api.StatusFailed {
		t.Errorf("record: got %+v", got)
	}
	if got.Balance == nil || *got.Balance != 1000 {
		t.Errorf("balance: got %v, want 1000", got.Balance)
	}
	if got.Recipient != nil {
		t.Errorf("recipient: got %q, want nil", *got.Recipient)
	}

	if rec := do(t, s, http.MethodGet, "/api/transactions/999"); rec.Code != http.StatusNotFound {
		t.Errorf("missing: status got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/summary?date_end=2024-05-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	var got Summary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.Count != 3 || got.Total != "8000" || got.Failed != 1 {
		t.Errorf("totals: got count=%d total=%s failed=%d, want 3, 8000, 1", got.Count, got.Total, got.Failed)
	}
	if len(got.Monthly) != 1 || got.Monthly[0].Month != "2024-05" {
		t.Errorf("monthly: got %+v", got.Monthly)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(fixtures())

	wantTypes := []TypeSummary{
		{Type: api.TypeIncoming, Count: 2, Total: "6000", Average: "3000.00"},
		{Type: api.TypeAirtime, Count: 1, Total: "2000", Average: "2000.00"},
		{Type: api.TypeWithdrawal, Count: 1, Total: "0", Average: "0.00"},
	}
	if !slices.Equal(got.ByType, wantTypes) {
		t.Errorf("by type: got %+v, want %+v", got.ByType, wantTypes)
	}

	wantMonths := []MonthTotal{
		{Month: "2024-05", Count: 3, Total: "8000"},
		{Month: "2024-06", Count: 1, Total: "0"},
	}
	if !slices.Equal(got.Monthly, wantMonths) {
		t.Errorf("monthly: got %+v, want %+v", got.Monthly, wantMonths)
	}

	thirds := Summarize([]*api.TransactionRecord{
		{Type: api.TypePayment, Amount: ptr(int64(1000))},
		{Type: api.TypePayment, Amount: ptr(int64(1000))},
		{Type: api.TypePayment, Amount: ptr(int64(1001))},
		{Type: api.TypePayment},
	})
	if avg := thirds.ByType[0].Average; avg != "1000.33" {
		t.Errorf("average: got %q, want 1000.33", avg)
	}

	empty := Summarize(nil)
	if empty.ByType == nil || empty.Monthly == nil || empty.Total != "0" {
		t.Errorf("empty summary should have non-nil slices and a zero total: %+v", empty)
	}
}

func TestSummarize_LargeAmounts(t *testing.T) {
	got := Summarize([]*api.TransactionRecord{
		{Type: api.TypeIncoming, Timestamp: base, Amount: ptr(int64(9000000000000000000))},
		{Type: api.TypeIncoming, Timestamp: base, Amount: ptr(int64(9000000000000000000))},
	})

	if got.Total != "18000000000000000000" {
		t.Errorf("total: got %s, want 18000000000000000000", got.Total)
	}
	want := TypeSummary{Type: api.TypeIncoming, Count: 2, Total: "18000000000000000000", Average: "9000000000000000000.00"}
	if len(got.ByType) != 1 || got.ByType[0] != want {
		t.Errorf("by type: got %+v, want %+v", got.ByType, want)
	}
	if len(got.Monthly) != 1 || got.Monthly[0].Total != "18000000000000000000" {
		t.Errorf("monthly: got %+v", got.Monthly)
	}
}

func TestMiddleware(t *testing.T) {
	s := newServer(t)

	t.Run("cors preflight", func(t *testing.T) {
		rec := do(t, s, http.MethodOptions, "/api/transactions")
		if rec.Code != http.StatusNoContent {
			t.Errorf("status: got %d, want %d", rec.Code, http.StatusNoContent)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("allow origin: got %q, want *", got)
		}
	})

	t.Run("request id generated", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/healthz")
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("missing generated request id")
		}
	})

	t.Run("request id propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("request id: got %q, want abc-123", got)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/transactions")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status: got %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		do(t, s, http.MethodGet, "/api/transactions/1")
		rec := do(t, s, http.MethodGet, "/metrics")
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
		}
		want := `momoledger_http_requests_total{method="GET",route="/api/transactions/{id}",status="200"}`
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics output missing %s", want)
		}
	})
}

type failingStore struct{ panics bool }

func (f failingStore) Query(context.Context, api.Filter) ([]*api.TransactionRecord, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New("database is locked")
}

type staticStore []*api.TransactionRecord

func (s staticStore) Query(context.Context, api.Filter) ([]*api.TransactionRecord, error) {
	return s, nil
}

func TestListTransactions_UnencodableRecord(t *testing.T) {
	store := staticStore{
		fixtures()[0],
		{MessageID: "far", Timestamp: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), Type: api.TypeIncoming},
	}
	s := New(store, discardLogger(), nil)

	rec := do(t, s, http.MethodGet, "/api/transactions")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("body: got %v, want an error message", body)
	}
}

func TestStoreFailures(t *testing.T) {
	tests := []struct {
		name  string
		store failingStore
	}{
		{"error", failingStore{}},
		{"panic", failingStore{panics: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(tc.store, discardLogger(), nil)
			rec := do(t, s, http.MethodGet, "/api/transactions")
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
			}
			if strings.Contains(rec.Body.String(), "locked") {
				t.Errorf("internal error leaked to client: %s", rec.Body.String())
			}
		})
	}

	s := New(failingStore{}, discardLogger(), nil)
	if rec := do(t, s, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without recorder: status got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(failingStore{}, discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe: got %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
