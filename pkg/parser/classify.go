// Package parser turns mobile-money notification bodies into transaction records.
//
// Classification is a fixed, ordered rule table evaluated first-match-wins. The
// order is part of the contract: bodies often satisfy several rules (a bundle
// purchase also reads like a payment), and the earlier rule always takes it.
package parser

import (
	"regexp"
	"slices"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// Rule pairs a transaction type with the predicate that recognizes it.
type Rule struct {
	Type  api.TransactionType
	Match func(body string) bool
}

var (
	incomingPattern       = regexp.MustCompile(`(?i)(?:You have received|received)\s+\d+(?:,\d+)?\s*RWF.*from`)
	paymentPattern        = regexp.MustCompile(`(?i)(?:Your payment|paid)\s+\d+(?:,\d+)?\s*RWF.*to`)
	transferPattern       = regexp.MustCompile(`(?i)\d+(?:,\d+)?\s*RWF\s+transferred\s+to`)
	bankDepositPattern    = regexp.MustCompile(`(?i)bank deposit.*\d+(?:,\d+)?\s*RWF`)
	airtimePattern        = regexp.MustCompile(`(?i)payment.*to\s+Airtime`)
	billPaymentPattern    = regexp.MustCompile(`(?i)payment.*(?:cash power|bill)`)
	withdrawalPattern     = regexp.MustCompile(`(?i)withdrawn.*from.*agent`)
	bankTransferPattern   = regexp.MustCompile(`(?i)transfer.*to.*bank`)
	bundlePurchasePattern = regexp.MustCompile(`(?i)(?:internet|voice).*bundle.*purchase`)
	thirdPartyPattern     = regexp.MustCompile(`(?i)transaction of\s+\d+(?:,\d+)?\s*RWF\s+by.*completed`)
)

func isIncoming(body string) bool       { return incomingPattern.MatchString(body) }
func isPayment(body string) bool        { return paymentPattern.MatchString(body) }
func isTransfer(body string) bool       { return transferPattern.MatchString(body) }
func isBankDeposit(body string) bool    { return bankDepositPattern.MatchString(body) }
func isAirtime(body string) bool        { return airtimePattern.MatchString(body) }
func isBillPayment(body string) bool    { return billPaymentPattern.MatchString(body) }
func isWithdrawal(body string) bool     { return withdrawalPattern.MatchString(body) }
func isBankTransfer(body string) bool   { return bankTransferPattern.MatchString(body) }
func isBundlePurchase(body string) bool { return bundlePurchasePattern.MatchString(body) }
func isThirdParty(body string) bool     { return thirdPartyPattern.MatchString(body) }

// rules is evaluated top to bottom. Do not reorder.
var rules = []Rule{
	{Type: api.TypeIncoming, Match: isIncoming},
	{Type: api.TypePayment, Match: isPayment},
	{Type: api.TypeTransfer, Match: isTransfer},
	{Type: api.TypeBankDeposit, Match: isBankDeposit},
	{Type: api.TypeAirtime, Match: isAirtime},
	{Type: api.TypeBillPayment, Match: isBillPayment},
	{Type: api.TypeWithdrawal, Match: isWithdrawal},
	{Type: api.TypeBankTransfer, Match: isBankTransfer},
	{Type: api.TypeBundlePurchase, Match: isBundlePurchase},
	{Type: api.TypeThirdParty, Match: isThirdParty},
}

// Rules returns a copy of the classifier rules in evaluation order.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Classify returns the type of the first rule matching body.
// The second result is false when no rule matches.
func Classify(body string) (api.TransactionType, bool) {
	for _, rule := range rules {
		if rule.Match(body) {
			return rule.Type, true
		}
	}
	return "", false
}
