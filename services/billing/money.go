package billing

import "github.com/shopspring/decimal"

// The billing engine computes in integral minor units (cents). The relational
// schema stores decimal major units. These two helpers are the only crossing
// point, so conversions round-trip to the cent in both directions.

// ToMajor converts integral minor units to a decimal major-unit amount.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ToMinor converts a decimal major-unit amount to integral minor units,
// rounded half-up to the cent.
func ToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}
