package server

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// TypeSummary aggregates the records of one transaction type.
type TypeSummary struct {
	Type  api.TransactionType `json:"transaction_type"`
	Count int                 `json:"count"`
	// Totals are decimal strings; sums may exceed int64.
	Total string `json:"total_amount"`
	// Average is taken over records that carry an amount, to two places.
	Average string `json:"average_amount"`
}

// MonthTotal is the summed amount for one calendar month (UTC), keyed "YYYY-MM".
type MonthTotal struct {
	Month string `json:"month"`
	Count int    `json:"count"`
	Total string `json:"total_amount"`
}

// Summary is the dashboard view over a set of records.
type Summary struct {
	Count   int           `json:"count"`
	Total   string        `json:"total_amount"`
	Failed  int           `json:"failed"`
	ByType  []TypeSummary `json:"by_type"`
	Monthly []MonthTotal  `json:"monthly"`
}

// Summarize computes per-type and per-month totals. Types appear in classifier
// order and months ascending; both omit empty buckets.
func Summarize(records []*api.TransactionRecord) Summary {
	type bucket struct {
		count, withAmount int
		total             decimal.Decimal
	}

	byType := make(map[api.TransactionType]*bucket)
	byMonth := make(map[string]*bucket)
	total := decimal.Zero
	s := Summary{ByType: []TypeSummary{}, Monthly: []MonthTotal{}}

	for _, r := range records {
		s.Count++
		if r.Status == api.StatusFailed {
			s.Failed++
		}

		b, ok := byType[r.Type]
		if !ok {
			b = &bucket{}
			byType[r.Type] = b
		}
		b.count++

		month := r.Timestamp.UTC().Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &bucket{}
			byMonth[month] = m
		}
		m.count++

		if r.Amount != nil {
			amount := decimal.NewFromInt(*r.Amount)
			total = total.Add(amount)
			b.total = b.total.Add(amount)
			b.withAmount++
			m.total = m.total.Add(amount)
		}
	}
	s.Total = total.String()

	for _, typ := range api.TransactionTypes {
		b, ok := byType[typ]
		if !ok {
			continue
		}
		avg := decimal.Zero
		if b.withAmount > 0 {
			avg = b.total.Div(decimal.NewFromInt(int64(b.withAmount)))
		}
		s.ByType = append(s.ByType, TypeSummary{
			Type:    typ,
			Count:   b.count,
			Total:   b.total.String(),
			Average: avg.StringFixed(2),
		})
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	slices.Sort(months)
	for _, month := range months {
		m := byMonth[month]
		s.Monthly = append(s.Monthly, MonthTotal{Month: month, Count: m.count, Total: m.total.String()})
	}

	return s
}
