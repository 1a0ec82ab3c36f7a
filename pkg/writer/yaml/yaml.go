// Package yaml implements a Writer that appends records to a multi-document
// YAML file, one document per record.
package yaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/writer/buffered"
)

// Writer appends records to a YAML file with buffered batching.
type Writer struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the YAML writer.
type Config struct {
	FilePath      string
	BatchSize     int
	FlushInterval time.Duration
}

// New creates a new YAML writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening yaml file: %w", err)
	}

	w := &Writer{
		filePath: cfg.FilePath,
		file:     file,
		logger:   logger,
	}
	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "yaml_buffer"))

	logger.Info("yaml writer initialized", "file", cfg.FilePath)
	return w, nil
}

// Write consumes records from the input channel and appends them as YAML
// documents. The file is closed when Write returns.
func (w *Writer) Write(ctx context.Context, in <-chan *api.TransactionRecord, ackChan chan<- string) error {
	err := w.buffered.Write(ctx, in, ackChan)
	return errors.Join(err, w.Close())
}

func (w *Writer) flushBatch(_ context.Context, records []*api.TransactionRecord) error {
	var buf bytes.Buffer
	for _, r := range records {
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshaling yaml: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(data)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing yaml file: %w", err)
	}

	w.logger.Debug("wrote records to yaml", "count", len(records))
	return nil
}

// Close closes the YAML file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing yaml file: %w", err)
	}
	return nil
}
