// Package daemon runs one ingest pass: reader -> parser -> writer.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/momoledger/internal/plugins"
	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/logging"
	"github.com/ArionMiles/momoledger/pkg/parser"
)

// Options selects the plugins for a run.
type Options struct {
	Reader       string
	ReaderConfig json.RawMessage
	Writer       string
	WriterConfig json.RawMessage
}

// Summary describes a finished run.
type Summary struct {
	// Written counts records the writer acknowledged.
	Written int
	Tally   parser.TallySnapshot
}

// Runner manages the ingest lifecycle.
type Runner struct {
	registry   *plugins.Registry
	httpClient *http.Client
	observers  parser.Observers
	logger     *slog.Logger
}

// New creates a new runner. Every parser outcome is also reported to observers.
func New(registry *plugins.Registry, httpClient *http.Client, logger *slog.Logger, observers ...parser.Observer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:   registry,
		httpClient: httpClient,
		observers:  observers,
		logger:     logger,
	}
}

// Run reads every message from the reader, parses it and hands accepted
// records to the writer. Rejected messages never stop the run; the caller
// decides from the Summary whether they constitute a failure.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Reader == "" {
		return Summary{}, errors.New("reader plugin is required (MOMO_READER)")
	}
	if opts.Writer == "" {
		return Summary{}, errors.New("writer plugin is required (MOMO_WRITER)")
	}

	r.logger.Info("starting ingest", "reader", opts.Reader, "writer", opts.Writer)

	tally := parser.NewTally()
	observers := append(parser.Observers{
		tally,
		logging.NewRejectionLogger(r.logger.With("component", "parser")),
	}, r.observers...)
	proc := parser.NewProcessor(observers)

	reader, err := r.registry.CreateReader(
		opts.Reader,
		opts.ReaderConfig,
		proc,
		r.logger.With("component", "reader", "plugin", opts.Reader),
	)
	if err != nil {
		return Summary{}, fmt.Errorf("creating reader: %w", err)
	}

	writer, err := r.registry.CreateWriter(
		ctx,
		opts.Writer,
		r.httpClient,
		opts.WriterConfig,
		r.logger.With("component", "writer", "plugin", opts.Writer),
	)
	if err != nil {
		return Summary{}, fmt.Errorf("creating writer: %w", err)
	}
	if store, ok := writer.(api.Store); ok {
		defer store.Close()
	}

	records := make(chan *api.TransactionRecord, 100)
	ackChan := make(chan string, 100)

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writer.Write(ctx, records, ackChan)
	}()

	acked := make(chan int, 1)
	go func() {
		n := 0
		for range ackChan {
			n++
		}
		acked <- n
	}()

	var errs []error
	if err := reader.Read(ctx, records); err != nil {
		errs = append(errs, fmt.Errorf("reader: %w", err))
	}
	if err := <-writerDone; err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, fmt.Errorf("writer: %w", err))
	}
	close(ackChan)

	summary := Summary{Written: <-acked, Tally: tally.Snapshot()}
	r.logger.Info("ingest finished",
		"accepted", summary.Tally.Accepted,
		"rejected", summary.Tally.TotalRejected(),
		"written", summary.Written,
	)
	return summary, errors.Join(errs...)
}
