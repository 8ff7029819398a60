package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half away from zero
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(decimal.RequireFromString("19.999"))
	if err != nil || m.Cents != 2000 {
		t.Fatalf("expected 2000 cents, got %d (err=%v)", m.Cents, err)
	}
	if _, err := MoneyFromDecimal(decimal.RequireFromString("-0.01")); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyFormatting(t *testing.T) {
	m := Money{Cents: 123456}
	if got := m.String(); got != "1234.56" {
		t.Fatalf("expected 1234.56, got %q", got)
	}
	if got := m.Float(); got != 1234.56 {
		t.Fatalf("expected 1234.56, got %v", got)
	}
	if got := m.Add(Money{Cents: 44}).Cents; got != 123500 {
		t.Fatalf("expected 123500, got %d", got)
	}
}
