package utils

import "github.com/shopspring/decimal"

const MoneyPlaces = 2

// RoundMoney rounds half away from zero to cents, which is half-up for the
// non-negative amounts the store deals in.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ClampZero returns zero for negative amounts.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
