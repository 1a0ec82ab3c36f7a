package plugins

import (
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ArionMiles/momoledger/pkg/parser"
	"github.com/ArionMiles/momoledger/pkg/writer/sheets"
)

func names[P Plugin](plugins []P) []string {
	out := make([]string, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, p.Name())
	}
	return out
}

func TestDefault(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	if got := names(r.ListReaders()); !slices.Equal(got, []string{"smsxml"}) {
		t.Errorf("readers: got %v", got)
	}
	want := []string{"csv", "json", "postgres", "sheets", "sqlite", "yaml"}
	if got := names(r.ListWriters()); !slices.Equal(got, want) {
		t.Errorf("writers: got %v, want %v", got, want)
	}

	for _, w := range r.ListWriters() {
		if w.ConfigSchema()["type"] != "object" {
			t.Errorf("%s: schema type: got %v", w.Name(), w.ConfigSchema()["type"])
		}
	}
}

func TestRegistry_DuplicateAndMissing(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	w, _ := r.GetWriter("csv")
	if err := r.RegisterWriter(w); err == nil {
		t.Error("expected error registering duplicate writer")
	}
	if _, err := r.GetReader("gmail"); err == nil {
		t.Error("expected error for unknown reader")
	}
	if _, err := r.GetStore("csv"); err == nil {
		t.Error("expected error: csv is not queryable")
	}
	if _, err := r.GetStore("postgres"); err != nil {
		t.Errorf("postgres store: %v", err)
	}
}

func TestGetAllScopes(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	scopes, err := r.GetAllScopes("smsxml", "sheets")
	if err != nil {
		t.Fatalf("GetAllScopes: %v", err)
	}
	if !slices.Equal(scopes, []string{sheets.Scope}) {
		t.Errorf("scopes: got %v", scopes)
	}

	if scopes, _ := r.GetAllScopes("smsxml", "sqlite"); len(scopes) != 0 {
		t.Errorf("sqlite scopes: got %v, want none", scopes)
	}
}

func TestCreateReaderAndStore(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := r.CreateReader("smsxml", json.RawMessage(`{}`), parser.NewProcessor(nil), nil); err == nil {
		t.Error("expected error for missing reader path")
	}
	if _, err := r.CreateReader("smsxml", json.RawMessage(`{"path":"sms.xml"}`), parser.NewProcessor(nil), nil); err != nil {
		t.Errorf("CreateReader: %v", err)
	}

	cfg, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "momo.sqlite")})
	store, err := r.CreateStore(ctx, "sqlite", cfg, nil)
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	defer store.Close()

	if _, err := r.CreateWriter(ctx, "sheets", nil, json.RawMessage(`{"sheetTitle":"x"}`), nil); err == nil {
		t.Error("expected error for sheets without an http client")
	}
	if _, err := r.CreateWriter(ctx, "csv", nil, json.RawMessage(`{}`), nil); err == nil {
		t.Error("expected error for csv without filePath")
	}
}
