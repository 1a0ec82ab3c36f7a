package parser

import (
	"regexp"
	"strings"

	"github.com/ArionMiles/momoledger/pkg/api"
)

var (
	amountPattern    = regexp.MustCompile(`(?i)` + groupedNumber + `\s*RWF`)
	recipientPattern = regexp.MustCompile(`(?i)(?:to|from)\s+(\+?\d{10,12}|\w+\s+\w+)`)
	referencePattern = regexp.MustCompile(`(?i)(?:TxId|Financial Transaction Id):\s*(\w+)`)
	balancePattern   = regexp.MustCompile(`(?i)(?:Your new balance|NEW BALANCE|New balance):\s*` + groupedNumber + `\s*RWF`)
)

// Fields holds the values extracted from a classified body.
type Fields struct {
	Amount    *int64
	Recipient *string
	Reference *string
	Balance   *int64
	Status    api.Status
	// Warnings collects non-fatal extraction problems.
	Warnings []error
}

// Extract runs every field extractor over body. Extraction does not depend on
// the transaction type. The only error returned is *InvalidAmountError.
func Extract(body string, _ api.TransactionType) (Fields, error) {
	amount, err := ExtractAmount(body)
	if err != nil {
		return Fields{}, err
	}

	fields := Fields{
		Amount:    amount,
		Recipient: ExtractRecipient(body),
		Reference: ExtractReference(body),
		Status:    ExtractStatus(body),
	}

	balance, err := ExtractBalance(body)
	if err != nil {
		fields.Warnings = append(fields.Warnings, err)
	}
	fields.Balance = balance

	return fields, nil
}

// ExtractAmount returns the first "<number> RWF" amount in body, or nil if there is none.
func ExtractAmount(body string) (*int64, error) {
	m := amountPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return nil, nil
	}
	amount, err := ParseGrouped(m[1])
	if err != nil {
		return nil, &InvalidAmountError{Value: m[1], Err: err}
	}
	return &amount, nil
}

// ExtractRecipient returns the phone number or two-word name following "to" or "from", verbatim.
func ExtractRecipient(body string) *string {
	return firstGroup(recipientPattern, body)
}

// ExtractReference returns the token after a "TxId:" or "Financial Transaction Id:" label.
func ExtractReference(body string) *string {
	return firstGroup(referencePattern, body)
}

// ExtractBalance returns the post-transaction balance. A balance that matches but
// does not parse yields a nil balance and a *BalanceParseWarning.
func ExtractBalance(body string) (*int64, error) {
	m := balancePattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return nil, nil
	}
	balance, err := ParseGrouped(m[1])
	if err != nil {
		return nil, &BalanceParseWarning{Value: m[1], Err: err}
	}
	return &balance, nil
}

// ExtractStatus reports failed if "failed" appears anywhere in body.
func ExtractStatus(body string) api.Status {
	if strings.Contains(strings.ToLower(body), "failed") {
		return api.StatusFailed
	}
	return api.StatusSuccess
}

func firstGroup(re *regexp.Regexp, body string) *string {
	m := re.FindStringSubmatch(body)
	if len(m) < 2 {
		return nil
	}
	v := m[1]
	return &v
}
