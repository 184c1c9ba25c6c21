package pricing

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw       string
		wantValue float64
		wantValid bool
	}{
		{"4.99", 4.99, true},
		{"£4.99", 4.99, true},
		{"GBP 1,299.00", 1299.00, true},
		{" 12 ", 12, true},
		{"-3.50", -3.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"free", 0, false},
		{"£", 0, false},
		{"..", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tc := range cases {
		got := ParseAmount(tc.raw)
		if got.Valid != tc.wantValid {
			t.Errorf("ParseAmount(%q): expected valid=%v, got %+v", tc.raw, tc.wantValid, got)
			continue
		}
		if got.Valid && got.Value != tc.wantValue {
			t.Errorf("ParseAmount(%q): expected %v, got %v", tc.raw, tc.wantValue, got.Value)
		}
	}
}

func TestAmountOf_Rounds(t *testing.T) {
	if got := AmountOf(4.999); got.Value != 5.00 {
		t.Errorf("Expected 5.00, got %v", got.Value)
	}
	if got := AmountOf(4.994); got.Value != 4.99 {
		t.Errorf("Expected 4.99, got %v", got.Value)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var doc struct {
		Price Amount `json:"price"`
	}

	cases := []struct {
		body      string
		wantValue float64
		wantValid bool
	}{
		{`{"price": 4.99}`, 4.99, true},
		{`{"price": "£4.99"}`, 4.99, true},
		{`{"price": "12"}`, 12, true},
		{`{"price": null}`, 0, false},
		{`{"price": ""}`, 0, false},
		{`{}`, 0, false},
	}

	for _, tc := range cases {
		doc.Price = Amount{}
		if err := json.Unmarshal([]byte(tc.body), &doc); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tc.body, err)
		}
		if doc.Price.Valid != tc.wantValid {
			t.Errorf("Unmarshal(%s): expected valid=%v, got %+v", tc.body, tc.wantValid, doc.Price)
			continue
		}
		if doc.Price.Valid && doc.Price.Value != tc.wantValue {
			t.Errorf("Unmarshal(%s): expected %v, got %v", tc.body, tc.wantValue, doc.Price.Value)
		}
	}
}

func TestAmount_MarshalJSON(t *testing.T) {
	known, err := json.Marshal(AmountOf(4.99))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(known) != "4.99" {
		t.Errorf("Expected 4.99, got %s", known)
	}

	unknown, err := json.Marshal(Amount{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(unknown) != "null" {
		t.Errorf("Expected null, got %s", unknown)
	}
}
