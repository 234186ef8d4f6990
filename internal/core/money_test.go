package core

import "testing"

func TestParseYen(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"450", 450, true},
		{"1,200", 1200, true},
		{"¥3,980", 3980, true},
		{" 42 ", 42, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"12.50", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseYen(tc.in)
			if tc.ok && (err != nil || got != tc.want) {
				t.Fatalf("ParseYen(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
			}
			if !tc.ok && err == nil {
				t.Fatalf("ParseYen(%q) expected error", tc.in)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		yen  int64
		want string
	}{
		{0, "0"},
		{450, "450"},
		{1200, "1,200"},
		{280000, "280,000"},
		{1234567, "1,234,567"},
	}
	for _, tc := range cases {
		if got := (Money{Yen: tc.yen}).String(); got != tc.want {
			t.Fatalf("Money{%d}.String() = %q, want %q", tc.yen, got, tc.want)
		}
	}
}
