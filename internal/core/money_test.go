package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"120", 12000, true},
		{"1.0", 100, true},
		{"80.5", 8050, true},
		{"1.23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"92233720368547758070", 0, false}, // overflow
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

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{12000, "120"},
		{8050, "80.50"},
		{101, "1.01"},
		{50, "0.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	valid := Record{UserID: "U1", Amount: Money{Cents: 12000}, Reason: "午餐"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := []struct {
		name string
		rec  Record
		want error
	}{
		{"missing user", Record{Amount: Money{Cents: 100}, Reason: "x"}, ErrEmptyUserID},
		{"zero amount", Record{UserID: "U1", Reason: "x"}, ErrInvalidAmount},
		{"negative amount", Record{UserID: "U1", Amount: Money{Cents: -5}, Reason: "x"}, ErrInvalidAmount},
		{"empty reason", Record{UserID: "U1", Amount: Money{Cents: 100}, Reason: "  "}, ErrEmptyReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.rec.Validate(); err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}
