package money

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{4.994, 4.99},
		{4.996, 5.00},
		{0.1 + 0.2, 0.30},
		{10, 10},
		{0, 0},
	}

	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestGBP(t *testing.T) {
	m := GBP(4.999)
	if m.Amount != 5.00 {
		t.Errorf("Expected 5.00, got %v", m.Amount)
	}
	if m.Currency != CurrencyGBP {
		t.Errorf("Expected GBP, got %s", m.Currency)
	}
}

func TestAdd(t *testing.T) {
	sum, err := Add(GBP(9.99), GBP(4.99))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if sum.Amount != 14.98 {
		t.Errorf("Expected 14.98, got %v", sum.Amount)
	}
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := Add(GBP(1), Money{Amount: 1, Currency: "EUR"})
	if err == nil {
		t.Fatal("Expected currency mismatch error")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(GBP(4.5)); got != "£4.50" {
		t.Errorf("Expected £4.50, got %s", got)
	}
}
