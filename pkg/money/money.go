// Package money converts between decimal prices and the integer minor units stored by the ledger.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits prices are compared and stored at.
const Scale = 2

// ToMinor rounds d to Scale digits and returns it in minor units (cents).
func ToMinor(d decimal.Decimal) int64 {
	return d.Round(Scale).Shift(Scale).IntPart()
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// InRange reports whether d, rounded to Scale digits, fits in int64 minor units.
func InRange(d decimal.Decimal) bool {
	m := d.Round(Scale).Shift(Scale)
	return m.GreaterThanOrEqual(minMinor) && m.LessThanOrEqual(maxMinor)
}

// FloorToMinor rounds d down to Scale digits and returns it in minor units.
func FloorToMinor(d decimal.Decimal) int64 {
	return d.RoundFloor(Scale).Shift(Scale).IntPart()
}

// FromMinor converts minor units back to a decimal price.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -Scale)
}

// Equal reports whether a and b are the same price at Scale precision.
func Equal(a, b decimal.Decimal) bool {
	return ToMinor(a) == ToMinor(b)
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
