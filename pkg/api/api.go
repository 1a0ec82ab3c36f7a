// Package api defines the core interfaces and data structures for momoledger.
package api

import (
	"context"
	"strconv"
	"time"
)

// Currency is the only currency token recognized in message bodies.
const Currency = "RWF"

// TransactionType is the classification assigned to a mobile-money message.
type TransactionType string

// The fixed set of transaction types, in classifier order.
const (
	TypeIncoming       TransactionType = "incoming"
	TypePayment        TransactionType = "payment"
	TypeTransfer       TransactionType = "transfer"
	TypeBankDeposit    TransactionType = "bank_deposit"
	TypeAirtime        TransactionType = "airtime"
	TypeBillPayment    TransactionType = "bill_payment"
	TypeWithdrawal     TransactionType = "withdrawal"
	TypeBankTransfer   TransactionType = "bank_transfer"
	TypeBundlePurchase TransactionType = "bundle_purchase"
	TypeThirdParty     TransactionType = "third_party"
)

// TransactionTypes lists every valid TransactionType.
var TransactionTypes = []TransactionType{
	TypeIncoming,
	TypePayment,
	TypeTransfer,
	TypeBankDeposit,
	TypeAirtime,
	TypeBillPayment,
	TypeWithdrawal,
	TypeBankTransfer,
	TypeBundlePurchase,
	TypeThirdParty,
}

// Valid reports whether t is one of the fixed transaction types.
func (t TransactionType) Valid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the outcome reported by the message.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// RawMessage is a single notification as received from the provider.
// It is owned by the caller and never modified by the parser.
type RawMessage struct {
	Body         string
	ExternalID   string
	Sender       string
	TimestampRaw string // epoch milliseconds
}

// TransactionRecord holds the structured result of parsing one message.
// Optional fields are nil when they could not be extracted.
type TransactionRecord struct {
	MessageID string          `json:"message_id" yaml:"message_id"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Sender    string          `json:"sender" yaml:"sender"`
	Recipient *string         `json:"recipient" yaml:"recipient"`
	Amount    *int64          `json:"amount" yaml:"amount"`
	Type      TransactionType `json:"transaction_type" yaml:"transaction_type"`
	Reference *string         `json:"reference" yaml:"reference"`
	Balance   *int64          `json:"balance" yaml:"balance"`
	Status    Status          `json:"status" yaml:"status"`
}

// TimestampLayout is the text form of record timestamps in tabular exports.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Columns are the tabular export headers, in Row order.
var Columns = []string{
	"message_id",
	"timestamp",
	"sender",
	"recipient",
	"amount",
	"transaction_type",
	"reference",
	"balance",
	"status",
}

// Row renders the record as strings in Columns order. Absent fields are empty.
func (r *TransactionRecord) Row() []string {
	return []string{
		r.MessageID,
		r.Timestamp.UTC().Format(TimestampLayout),
		r.Sender,
		stringOrEmpty(r.Recipient),
		intOrEmpty(r.Amount),
		string(r.Type),
		stringOrEmpty(r.Reference),
		intOrEmpty(r.Balance),
		string(r.Status),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

// Rejection describes a message (or a single field of it) the parser could not accept.
// Fatal rejections mean no record was produced; non-fatal ones are warnings.
type Rejection struct {
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail"`
	Snippet   string `json:"snippet"`
	Fatal     bool   `json:"fatal"`
}

// Filter narrows a store query. Zero values mean "no constraint".
type Filter struct {
	MessageID string
	Type      TransactionType
	// From and To bound the timestamp; From is inclusive, To is exclusive.
	From      time.Time
	To        time.Time
	AmountMin *int64
	AmountMax *int64
	Limit     int
}

// Reader produces transaction records and sends them to the provided channel.
// Implementations close the channel when the source is exhausted or on error.
type Reader interface {
	Read(ctx context.Context, out chan<- *TransactionRecord) error
}

// Writer consumes records from a channel and writes them to a destination.
// Message IDs of successfully written records are sent to ackChan.
type Writer interface {
	Write(ctx context.Context, in <-chan *TransactionRecord, ackChan chan<- string) error
}

// Store is a Writer whose records can be queried back.
type Store interface {
	Writer
	Query(ctx context.Context, f Filter) ([]*TransactionRecord, error)
	Close()
}
