package calculator

import "github.com/shopspring/decimal"

// Round2 rounds an amount half away from zero to two decimal places.
func Round2(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
