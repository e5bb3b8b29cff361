package parse

import "testing"

func TestExtractAmount(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		cents    int64
		residual string
		ok       bool
	}{
		{"currency suffix", "午餐120元", 12000, "午餐", true},
		{"kuai suffix", "停車費 30塊", 3000, "停車費", true},
		{"dollar prefix", "$80", 8000, "", true},
		{"nt dollar prefix", "飲料 NT$100", 10000, "飲料", true},
		{"spent verb", "花了60", 6000, "", true},
		{"spent verb short", "花60 買麵包", 6000, "買麵包", true},
		{"trailing bare number", "午餐 120", 12000, "午餐", true},
		{"decimal trailing", "咖啡 85.5", 8550, "咖啡", true},
		{"no amount", "今天天氣很好", 0, "今天天氣很好", false},
		{"number mid-reason stays", "第2杯咖啡很貴", 0, "第2杯咖啡很貴", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, residual, ok := ExtractAmount(tc.in)
			if ok != tc.ok {
				t.Fatalf("ExtractAmount(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if ok && amount.Cents != tc.cents {
				t.Errorf("ExtractAmount(%q) cents = %d, want %d", tc.in, amount.Cents, tc.cents)
			}
			if residual != tc.residual {
				t.Errorf("ExtractAmount(%q) residual = %q, want %q", tc.in, residual, tc.residual)
			}
		})
	}
}

func TestExtractAmountPatternPriority(t *testing.T) {
	// Both "50元" and a trailing "120" are present; the currency-suffixed
	// number wins because its pattern is checked first.
	amount, residual, ok := ExtractAmount("飲料50元 桌號 120")
	if !ok {
		t.Fatal("expected an amount")
	}
	if amount.Cents != 5000 {
		t.Errorf("cents = %d, want 5000", amount.Cents)
	}
	if residual != "飲料 桌號 120" {
		t.Errorf("residual = %q", residual)
	}
}

func TestExtractAmountOverflowIsNoMatch(t *testing.T) {
	// The capture parses but overflows; treated as no amount, not an error.
	if _, _, ok := ExtractAmount("big 99999999999999999999"); ok {
		t.Error("overflowing number should not yield an amount")
	}
}
