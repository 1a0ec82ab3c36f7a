// Package smsxml implements a Reader over Android SMS backup files
// (<smses><sms id=".." date=".." address=".." body=".."/></smses>).
package smsxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/parser"
)

// SMS is a single <sms> element of a backup file.
type SMS struct {
	ID      string `xml:"id,attr"`
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    string `xml:"date,attr"`
}

// RawMessage converts the element into parser input. Backups written without
// an id attribute fall back to the date, which is unique per device.
func (s SMS) RawMessage() api.RawMessage {
	id := s.ID
	if id == "" {
		id = s.Date
	}
	return api.RawMessage{
		Body:         s.Body,
		ExternalID:   id,
		Sender:       s.Address,
		TimestampRaw: s.Date,
	}
}

// Decode streams <sms> elements from r one at a time. The sequence stops at
// the first decode error, which is yielded with a zero RawMessage.
func Decode(r io.Reader) iter.Seq2[api.RawMessage, error] {
	return func(yield func(api.RawMessage, error) bool) {
		dec := xml.NewDecoder(r)
		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(api.RawMessage{}, fmt.Errorf("reading sms backup: %w", err))
				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok || start.Name.Local != "sms" {
				continue
			}

			var sms SMS
			if err := dec.DecodeElement(&sms, &start); err != nil {
				yield(api.RawMessage{}, fmt.Errorf("decoding sms element: %w", err))
				return
			}
			if !yield(sms.RawMessage(), nil) {
				return
			}
		}
	}
}

// Messages streams the messages of the backup at path. Each range over the
// returned sequence reopens the file.
func Messages(path string) iter.Seq2[api.RawMessage, error] {
	return func(yield func(api.RawMessage, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(api.RawMessage{}, fmt.Errorf("opening sms backup: %w", err))
			return
		}
		defer f.Close()

		for raw, err := range Decode(f) {
			if !yield(raw, err) {
				return
			}
		}
	}
}

// Config holds configuration for the SMS backup reader.
type Config struct {
	// Path to the XML backup file.
	Path string `json:"path"`
}

// Reader parses every message of a backup file and emits accepted records.
type Reader struct {
	path   string
	proc   *parser.Processor
	logger *slog.Logger
}

// New creates a new SMS backup reader.
func New(cfg Config, proc *parser.Processor, logger *slog.Logger) (*Reader, error) {
	if cfg.Path == "" {
		return nil, errors.New("sms backup path is required")
	}
	if proc == nil {
		return nil, errors.New("processor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		path:   cfg.Path,
		proc:   proc,
		logger: logger,
	}, nil
}

// Read sends a record for every accepted message to out and closes it when
// the file is exhausted. Rejections are reported through the processor's
// observer and never stop the run.
func (r *Reader) Read(ctx context.Context, out chan<- *api.TransactionRecord) error {
	defer close(out)

	r.logger.Info("reading sms backup", "path", r.path)

	var total, accepted int
	for raw, err := range Messages(r.path) {
		if err != nil {
			return err
		}
		total++

		record, err := r.proc.Process(raw)
		if err != nil {
			continue
		}
		accepted++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- record:
		}
	}

	r.logger.Info("sms backup read", "messages", total, "accepted", accepted)
	return nil
}
