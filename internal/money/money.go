package money

import (
	"fmt"
	"math"
)

// CurrencyGBP is the only currency the comparison engine handles today.
const CurrencyGBP = "GBP"

// Money is a decimal amount rounded to 2 places plus a currency tag.
// Amounts are always re-rounded immediately after each operation so that
// floating-point drift never accumulates across sums.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// GBP wraps an amount as 2dp GBP.
func GBP(amount float64) Money {
	return Money{Amount: Round2(amount), Currency: CurrencyGBP}
}

// Add sums two amounts of the same currency.
func Add(a, b Money) (Money, error) {
	if a.Currency != b.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", a.Currency, b.Currency)
	}
	return Money{Amount: Round2(a.Amount + b.Amount), Currency: a.Currency}, nil
}

// Format renders the amount with a currency symbol, e.g. "£4.99".
func Format(m Money) string {
	return fmt.Sprintf("£%.2f", m.Amount)
}

// Round2 rounds to 2 decimal places (half away from zero).
func Round2(n float64) float64 {
	return math.Round(n*100) / 100
}
