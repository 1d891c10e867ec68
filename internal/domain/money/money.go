// Package money converts stored decimal amounts into the plain numbers used
// by response projections.
package money

import "github.com/shopspring/decimal"

// Float converts a stored amount to a plain number rounded to cents.
// Every decimal has a float form, so the conversion never fails.
func Float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Mul returns price * quantity as a decimal.
func Mul(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
