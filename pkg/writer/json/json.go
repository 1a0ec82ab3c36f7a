// Package json implements a Writer that keeps records in a JSON array file.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/writer/buffered"
)

// Writer writes records to a JSON file with buffered batching. Records whose
// message id is already in the file are skipped.
type Writer struct {
	filePath string
	records  []*api.TransactionRecord
	seen     map[string]struct{}
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the JSON writer.
type Config struct {
	// FilePath is the path to the JSON output file.
	FilePath string
	// BatchSize is the number of records to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	FlushInterval time.Duration
}

// New creates a new JSON writer, loading any records already in the file.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Writer{
		filePath: cfg.FilePath,
		seen:     make(map[string]struct{}),
		logger:   logger,
	}

	if err := w.loadExisting(); err != nil {
		return nil, fmt.Errorf("loading existing records: %w", err)
	}

	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "json_buffer"))

	logger.Info("json writer initialized", "file", cfg.FilePath, "existing_count", len(w.records))
	return w, nil
}

func (w *Writer) loadExisting() error {
	data, err := os.ReadFile(w.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &w.records); err != nil {
		return err
	}
	for _, r := range w.records {
		w.seen[r.MessageID] = struct{}{}
	}
	return nil
}

// Write consumes records from the input channel and writes them to JSON.
func (w *Writer) Write(ctx context.Context, in <-chan *api.TransactionRecord, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

// flushBatch appends new records and rewrites the whole file. The in-memory
// state only changes once the file is written.
func (w *Writer) flushBatch(_ context.Context, records []*api.TransactionRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := slices.Clip(w.records)
	batchSeen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := w.seen[r.MessageID]; dup {
			continue
		}
		if _, dup := batchSeen[r.MessageID]; dup {
			continue
		}
		batchSeen[r.MessageID] = struct{}{}
		next = append(next, r)
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}
	if err := os.WriteFile(w.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}

	w.records = next
	for id := range batchSeen {
		w.seen[id] = struct{}{}
	}

	w.logger.Debug("wrote records to json",
		"batch_count", len(records),
		"added", len(batchSeen),
		"total_count", len(w.records),
	)
	return nil
}

// RecordCount returns the number of records in the file.
func (w *Writer) RecordCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}
