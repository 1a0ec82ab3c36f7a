package parser

import (
	"testing"

	"github.com/ArionMiles/momoledger/pkg/api"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want api.TransactionType
	}{
		{
			name: "incoming",
			body: "You have received 5,000 RWF from Jane Doe (*********013) on your mobile money account at 2024-05-10 16:30:51.",
			want: api.TypeIncoming,
		},
		{
			name: "payment",
			body: "You paid 1,000 RWF to Jane Smith 12845 at 2024-05-10 21:32:32.",
			want: api.TypePayment,
		},
		{
			name: "transfer",
			body: "*165*S*10,000 RWF transferred to Samuel Carter (250791666666) from 36521838 at 2024-05-11 20:34:47.",
			want: api.TypeTransfer,
		},
		{
			name: "bank deposit",
			body: "*113*R*A bank deposit of 40,000 RWF has been added to your mobile money account at 2024-05-11 18:43:49.",
			want: api.TypeBankDeposit,
		},
		{
			name: "airtime",
			body: "*162*TxId:13913173274*S*Your payment of 2,000 RWF to Airtime with token has been completed.",
			want: api.TypeAirtime,
		},
		{
			name: "cash power",
			body: "Your payment of 5,000 RWF to MTN Cash Power with token 1234-5678 has been completed.",
			want: api.TypeBillPayment,
		},
		{
			name: "withdrawal",
			body: "You have withdrawn 20,000 RWF from your account via agent Sophia (250790777777).",
			want: api.TypeWithdrawal,
		},
		{
			name: "bank transfer",
			body: "You have made a transfer of 50,000 RWF to your Bank of Kigali account.",
			want: api.TypeBankTransfer,
		},
		{
			name: "bundle purchase",
			body: "Yello! You have an internet bundle of 1GB for 2,000 RWF. Thank you for your purchase.",
			want: api.TypeBundlePurchase,
		},
		{
			name: "third party",
			body: "*164*S*Y'ello,A transaction of 3,000 RWF by Data Bundle MTN on your MOMO account was successfully completed.",
			want: api.TypeThirdParty,
		},
		{
			name: "case insensitive",
			body: "YOU HAVE RECEIVED 700 rwf FROM JOHN DOE",
			want: api.TypeIncoming,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.body)
			if !ok {
				t.Fatalf("Classify(%q): no rule matched", tc.body)
			}
			if got != tc.want {
				t.Errorf("type: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassify_Unclassified(t *testing.T) {
	bodies := []string{
		"",
		"   ",
		"RWF",
		"Your one-time password is 482913.",
		// The incoming rule needs digits before the currency.
		"received abc RWF from John Doe",
		// Only a single comma group is accepted before the currency in the incoming rule.
		"You have received 1,234,567 RWF from Jane Doe",
	}

	for _, body := range bodies {
		if got, ok := Classify(body); ok {
			t.Errorf("Classify(%q): got %q, want no match", body, got)
		}
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		matches []func(string) bool
		want    api.TransactionType
	}{
		{
			name:    "incoming beats bundle purchase",
			body:    "You have received 2,000 RWF from Jane Doe for your internet bundle purchase.",
			matches: []func(string) bool{isIncoming, isBundlePurchase},
			want:    api.TypeIncoming,
		},
		{
			name:    "payment beats airtime",
			body:    "Your payment 2,000 RWF to Airtime has been completed.",
			matches: []func(string) bool{isPayment, isAirtime},
			want:    api.TypePayment,
		},
		{
			name:    "airtime beats bill payment",
			body:    "Your payment of 500 RWF to Airtime bill has been completed.",
			matches: []func(string) bool{isAirtime, isBillPayment},
			want:    api.TypeAirtime,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i, match := range tc.matches {
				if !match(tc.body) {
					t.Fatalf("predicate %d does not match %q", i, tc.body)
				}
			}

			got, _ := Classify(tc.body)
			if got != tc.want {
				t.Errorf("type: got %q, want %q", got, tc.want)
			}
		})
	}
}

// "Your payment of ..." does not satisfy the payment rule (it needs the amount
// right after the phrase), so the airtime rule is the first to match.
func TestClassify_PaymentOfAirtime(t *testing.T) {
	body := "Your payment of 2,000 RWF to Airtime has failed. New balance: 1,000 RWF."

	if isPayment(body) {
		t.Fatalf("isPayment(%q): got true, want false", body)
	}

	got, ok := Classify(body)
	if !ok || got != api.TypeAirtime {
		t.Errorf("type: got %q (ok=%v), want %q", got, ok, api.TypeAirtime)
	}
}

func TestRules_Order(t *testing.T) {
	got := Rules()
	if len(got) != len(api.TransactionTypes) {
		t.Fatalf("rule count: got %d, want %d", len(got), len(api.TransactionTypes))
	}
	for i, rule := range got {
		if rule.Type != api.TransactionTypes[i] {
			t.Errorf("rule %d: got %q, want %q", i, rule.Type, api.TransactionTypes[i])
		}
	}

	// Mutating the copy must not affect classification.
	got[0] = Rule{Type: api.TypeThirdParty, Match: func(string) bool { return true }}
	if typ, _ := Classify("You have received 1,000 RWF from Jane Doe"); typ != api.TypeIncoming {
		t.Errorf("type after mutating Rules(): got %q, want %q", typ, api.TypeIncoming)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		match func(string) bool
		yes   string
		no    string
	}{
		{"incoming", isIncoming, "received 100 RWF from Bob Lee", "sent 100 RWF to Bob Lee"},
		{"payment", isPayment, "paid 100 RWF to Bob Lee", "paid Bob Lee 100 RWF"},
		{"transfer", isTransfer, "100 RWF transferred to Bob", "transferred 100 RWF to Bob"},
		{"bank deposit", isBankDeposit, "bank deposit of 100 RWF", "deposit of 100 RWF"},
		{"airtime", isAirtime, "payment of 100 RWF to Airtime", "Airtime payment of 100 RWF"},
		{"bill payment", isBillPayment, "payment for water bill", "bill payment"},
		{"withdrawal", isWithdrawal, "withdrawn 100 RWF from agent", "withdrawn 100 RWF"},
		{"bank transfer", isBankTransfer, "transfer to your bank", "bank transfer"},
		{"bundle purchase", isBundlePurchase, "voice bundle purchase", "bundle purchase"},
		{"third party", isThirdParty, "transaction of 100 RWF by MTN completed", "transaction of 100 RWF completed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.match(tc.yes) {
				t.Errorf("match(%q): got false, want true", tc.yes)
			}
			if tc.match(tc.no) {
				t.Errorf("match(%q): got true, want false", tc.no)
			}
		})
	}
}
