package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the precision the gateway accepts for forex prices.
const PriceDecimals = 5

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// RoundPrice rounds a price half-away-from-zero to PriceDecimals.
func RoundPrice(price float64) float64 {
	f, _ := decimal.NewFromFloat(price).Round(PriceDecimals).Float64()

	return f
}

// NudgePrice moves price by steps increments of size and rounds the result
// to PriceDecimals. A negative steps moves the price down.
func NudgePrice(price float64, increment float64, steps int) float64 {
	d := decimal.NewFromFloat(price).
		Add(decimal.NewFromFloat(increment).Mul(decimal.NewFromInt(int64(steps))))
	f, _ := d.Round(PriceDecimals).Float64()

	return f
}

// Sign returns -1, 0 or 1.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// SignInt returns -1, 0 or 1.
func SignInt(v int) int {
	return Sign(float64(v))
}

// Truncate drops the fractional part toward zero, the way capital is turned
// into a whole-unit quantity.
func Truncate(v float64) float64 {
	return math.Trunc(v)
}
