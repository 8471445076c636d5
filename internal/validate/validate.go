package validate

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reID   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reLang = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)
)

// ID validates a resource identifier (product, user, negotiation ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Lang validates an optional language code. Empty is allowed.
func Lang(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || reLang.MatchString(s)
}

// Price parses a positive money amount with at most two decimal places.
func Price(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() || !d.Equal(d.Round(2)) {
		return decimal.Zero, false
	}
	return d, true
}

// Text validates free text such as a justification: trimmed, non-empty and at
// most max runes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len([]rune(s)) > max {
		return "", false
	}
	return s, true
}
