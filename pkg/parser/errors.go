package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Reason codes attached to rejection events.
const (
	ReasonMissingFields    = "missing_fields"
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonUnclassified     = "unclassified"
	ReasonInvalidAmount    = "invalid_amount"
	ReasonBalanceParse     = "balance_parse"
)

// MissingFieldError is returned when required raw fields are empty after trimming.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldError) Reason() string { return ReasonMissingFields }

// ErrTimestampRange is wrapped by InvalidTimestampError when the timestamp
// falls outside years 1 through 9999.
var ErrTimestampRange = errors.New("timestamp out of range")

// InvalidTimestampError is returned when the raw timestamp is not epoch milliseconds.
type InvalidTimestampError struct {
	Value string
	Err   error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %v", e.Value, e.Err)
}

func (e *InvalidTimestampError) Unwrap() error { return e.Err }

func (e *InvalidTimestampError) Reason() string { return ReasonInvalidTimestamp }

// UnclassifiedMessageError is returned when no classifier rule matches the body.
type UnclassifiedMessageError struct{}

func (e *UnclassifiedMessageError) Error() string { return "could not categorize message" }

func (e *UnclassifiedMessageError) Reason() string { return ReasonUnclassified }

// InvalidAmountError is returned when the amount pattern matched but its digits
// do not parse. The whole record is rejected.
type InvalidAmountError struct {
	Value string
	Err   error
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %v", e.Value, e.Err)
}

func (e *InvalidAmountError) Unwrap() error { return e.Err }

func (e *InvalidAmountError) Reason() string { return ReasonInvalidAmount }

// BalanceParseWarning reports a balance that matched but did not parse.
// It never rejects a record; the balance is left absent.
type BalanceParseWarning struct {
	Value string
	Err   error
}

func (e *BalanceParseWarning) Error() string {
	return fmt.Sprintf("invalid balance %q: %v", e.Value, e.Err)
}

func (e *BalanceParseWarning) Unwrap() error { return e.Err }

func (e *BalanceParseWarning) Reason() string { return ReasonBalanceParse }

// ReasonOf returns the reason code carried by err, or "unknown".
func ReasonOf(err error) string {
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		return r.Reason()
	}
	return "unknown"
}
