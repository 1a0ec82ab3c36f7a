// Package sqlfilter renders an api.Filter as a SQL WHERE clause shared by the
// SQL-backed stores.
package sqlfilter

import (
	"strconv"
	"strings"
	"time"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// Dialect describes how a store binds parameters and timestamps.
type Dialect struct {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder func(n int) string
	// TimestampColumn is compared against Filter.From and Filter.To.
	TimestampColumn string
	// Time converts a bound into the value stored in TimestampColumn.
	Time func(time.Time) any
}

// SQLite binds with ? and stores timestamps as epoch milliseconds.
var SQLite = Dialect{
	Placeholder:     func(int) string { return "?" },
	TimestampColumn: "timestamp_ms",
	Time:            func(t time.Time) any { return t.UnixMilli() },
}

// Postgres binds with $n and stores timestamps as timestamptz.
var Postgres = Dialect{
	Placeholder:     func(n int) string { return "$" + strconv.Itoa(n) },
	TimestampColumn: "timestamp",
	Time:            func(t time.Time) any { return t.UTC() },
}

// Build returns the WHERE clause (empty when f has no constraints), the
// LIMIT clause (empty when unlimited) and the bound arguments.
func Build(f api.Filter, d Dialect) (where, limit string, args []any) {
	var conds []string
	add := func(expr string, arg any) {
		args = append(args, arg)
		conds = append(conds, expr+" "+d.Placeholder(len(args)))
	}

	if f.MessageID != "" {
		add("message_id =", f.MessageID)
	}
	if f.Type != "" {
		add("transaction_type =", string(f.Type))
	}
	if !f.From.IsZero() {
		add(d.TimestampColumn+" >=", d.Time(f.From))
	}
	if !f.To.IsZero() {
		add(d.TimestampColumn+" <", d.Time(f.To))
	}
	if f.AmountMin != nil {
		add("amount >=", *f.AmountMin)
	}
	if f.AmountMax != nil {
		add("amount <=", *f.AmountMax)
	}

	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		limit = " LIMIT " + d.Placeholder(len(args))
	}
	return where, limit, args
}
