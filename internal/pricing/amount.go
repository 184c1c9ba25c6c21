package pricing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/savvydealshub/SavvyDealsHub/internal/money"
)

// Amount is an optional monetary value. The zero value means "unknown".
// Unknown is only ever represented by Valid=false; NaN or sentinel values
// like -1 must never leak into comparisons.
type Amount struct {
	Value float64
	Valid bool
}

// AmountOf wraps a known value, rounded to 2dp.
func AmountOf(v float64) Amount {
	return Amount{Value: money.Round2(v), Valid: true}
}

// Unknown is the empty amount.
func Unknown() Amount {
	return Amount{}
}

// ParseAmount coerces a raw price-like string into an Amount. Every
// character except digits, '.' and '-' is stripped before parsing, so
// currency symbols and thousands separators are tolerated. Empty input
// after stripping, or anything non-finite, resolves to unknown.
func ParseAmount(raw string) Amount {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return Amount{}
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return Amount{}
	}
	return AmountOf(n)
}

// UnmarshalJSON accepts a JSON number, a price-like string ("£4.99"),
// or null. Feeds are inconsistent about which they send.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// Malformed numerics resolve to unknown rather than failing the
		// whole document.
		*a = Amount{}
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		*a = Amount{}
		return nil
	}
	*a = AmountOf(n)
	return nil
}

// MarshalJSON renders unknown as null so consumers can show "Check price"
// instead of a bogus zero.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}
