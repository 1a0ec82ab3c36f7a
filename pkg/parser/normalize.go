package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// groupedNumber matches a thousands-comma number ("12,345") or a plain digit run.
const groupedNumber = `(\d{1,3}(?:,\d{3})*|\d+)`

// snippetLen is the number of body runes kept in rejection events.
const snippetLen = 100

// ParseGrouped strips thousands separators from s and parses the result as a
// non-negative integer.
func ParseGrouped(s string) (int64, error) {
	digits := strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("parsing %q: value out of range", s)
	}
	return int64(n), nil
}

// FormatGrouped renders n with comma thousands separators, the inverse of ParseGrouped.
func FormatGrouped(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

func snippet(body string) string {
	if utf8.RuneCountInString(body) <= snippetLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:snippetLen]) + "..."
}
