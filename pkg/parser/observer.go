package parser

import (
	"sync"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// Observer receives the outcome of every processed message.
// Implementations must be safe for concurrent use.
type Observer interface {
	Accepted(record *api.TransactionRecord)
	Rejected(rejection api.Rejection)
}

type nopObserver struct{}

func (nopObserver) Accepted(*api.TransactionRecord) {}
func (nopObserver) Rejected(api.Rejection)          {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) Accepted(record *api.TransactionRecord) {
	for _, obs := range o {
		obs.Accepted(record)
	}
}

func (o Observers) Rejected(rejection api.Rejection) {
	for _, obs := range o {
		obs.Rejected(rejection)
	}
}

// TallySnapshot is a point-in-time copy of a Tally.
type TallySnapshot struct {
	Accepted int
	// Rejected counts fatal rejections by reason.
	Rejected map[string]int
	// Warnings counts non-fatal rejections by reason.
	Warnings map[string]int
}

// TotalRejected returns the number of messages that produced no record.
func (s TallySnapshot) TotalRejected() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// Tally counts outcomes.
type Tally struct {
	mu       sync.Mutex
	accepted int
	rejected map[string]int
	warnings map[string]int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{
		rejected: make(map[string]int),
		warnings: make(map[string]int),
	}
}

func (t *Tally) Accepted(*api.TransactionRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accepted++
}

func (t *Tally) Rejected(rejection api.Rejection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rejection.Fatal {
		t.rejected[rejection.Reason]++
	} else {
		t.warnings[rejection.Reason]++
	}
}

// Snapshot returns the current counts.
func (t *Tally) Snapshot() TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TallySnapshot{
		Accepted: t.accepted,
		Rejected: make(map[string]int, len(t.rejected)),
		Warnings: make(map[string]int, len(t.warnings)),
	}
	for k, v := range t.rejected {
		s.Rejected[k] = v
	}
	for k, v := range t.warnings {
		s.Warnings[k] = v
	}
	return s
}
