package parser

import (
	"errors"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// Processor runs the full classify-and-extract pipeline on raw messages.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	observer Observer
}

// NewProcessor creates a Processor reporting outcomes to observer.
// A nil observer discards them.
func NewProcessor(observer Observer) *Processor {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Processor{observer: observer}
}

// Process converts a single raw message into a record. On rejection it reports
// a Rejection to the observer and returns one of the typed errors in this package.
func (p *Processor) Process(raw api.RawMessage) (*api.TransactionRecord, error) {
	record, warnings, err := process(raw)
	if err != nil {
		p.observer.Rejected(newRejection(raw, err, true))
		return nil, err
	}

	for _, w := range warnings {
		p.observer.Rejected(newRejection(raw, w, false))
	}
	p.observer.Accepted(record)
	return record, nil
}

// Records lazily processes msgs, yielding only accepted records. Rejections go
// to the observer. The sequence can be ranged over again if msgs can.
func (p *Processor) Records(msgs iter.Seq[api.RawMessage]) iter.Seq[*api.TransactionRecord] {
	return func(yield func(*api.TransactionRecord) bool) {
		for raw := range msgs {
			record, err := p.Process(raw)
			if err != nil {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

func process(raw api.RawMessage) (*api.TransactionRecord, []error, error) {
	id := strings.TrimSpace(raw.ExternalID)
	sender := strings.TrimSpace(raw.Sender)
	tsRaw := strings.TrimSpace(raw.TimestampRaw)
	body := strings.TrimSpace(raw.Body)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"id", id},
		{"sender", sender},
		{"timestamp", tsRaw},
		{"body", body},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &MissingFieldError{Fields: missing}
	}

	ms, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return nil, nil, &InvalidTimestampError{Value: tsRaw, Err: err}
	}
	ts := time.UnixMilli(ms).UTC()
	if y := ts.Year(); y < 1 || y > 9999 {
		return nil, nil, &InvalidTimestampError{Value: tsRaw, Err: ErrTimestampRange}
	}

	txType, ok := Classify(body)
	if !ok {
		return nil, nil, &UnclassifiedMessageError{}
	}

	fields, err := Extract(body, txType)
	if err != nil {
		return nil, nil, err
	}

	return &api.TransactionRecord{
		MessageID: id,
		Timestamp: ts,
		Sender:    sender,
		Recipient: fields.Recipient,
		Amount:    fields.Amount,
		Type:      txType,
		Reference: fields.Reference,
		Balance:   fields.Balance,
		Status:    fields.Status,
	}, fields.Warnings, nil
}

func newRejection(raw api.RawMessage, err error, fatal bool) api.Rejection {
	var detail string
	var unclassified *UnclassifiedMessageError
	if errors.As(err, &unclassified) {
		detail = err.Error() + ": " + strings.TrimSpace(raw.Body)
	} else {
		detail = err.Error()
	}

	return api.Rejection{
		MessageID: strings.TrimSpace(raw.ExternalID),
		Reason:    ReasonOf(err),
		Detail:    detail,
		Snippet:   snippet(strings.TrimSpace(raw.Body)),
		Fatal:     fatal,
	}
}
