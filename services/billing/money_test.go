package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 99, 100, 12345, 999999, -2500}
	for _, minor := range cases {
		if got := ToMinor(ToMajor(minor)); got != minor {
			t.Errorf("round trip of %d produced %d", minor, got)
		}
	}
}

func TestToMajor(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{12550, "125.50"},
		{-2500, "-25.00"},
	}
	for _, tc := range tests {
		if got := ToMajor(tc.minor).StringFixed(2); got != tc.want {
			t.Errorf("ToMajor(%d) = %s, want %s", tc.minor, got, tc.want)
		}
	}
}

func TestToMinorFromDecimalString(t *testing.T) {
	d, err := decimal.NewFromString("125.50")
	if err != nil {
		t.Fatal(err)
	}
	if got := ToMinor(d); got != 12550 {
		t.Errorf("ToMinor(125.50) = %d, want 12550", got)
	}
}
