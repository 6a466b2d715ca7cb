package domain

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for amounts.
const MoneyScale = 2

// RoundMoney rounds d to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// LineTotal returns quantity × price without rounding.
func LineTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
