package models

import "github.com/shopspring/decimal"

// PrizeRule is one row of the prize table: either a percentage of the draw's
// jackpot or a fixed amount. Exactly one of the two applies.
type PrizeRule struct {
	JackpotPercent decimal.Decimal
	FixedAmount    decimal.Decimal
	IsFixed        bool
}

var prizeTables = map[DrawType]map[int]PrizeRule{
	DrawTypeDaily: {
		5: {JackpotPercent: decimal.NewFromInt(100)},
		4: {JackpotPercent: decimal.NewFromInt(15)},
		3: {JackpotPercent: decimal.NewFromInt(5)},
		2: {FixedAmount: decimal.RequireFromString("10.00"), IsFixed: true},
	},
	DrawTypeWeekly: {
		6: {JackpotPercent: decimal.NewFromInt(100)},
		5: {JackpotPercent: decimal.NewFromInt(20)},
		4: {JackpotPercent: decimal.NewFromInt(10)},
		3: {JackpotPercent: decimal.NewFromInt(3)},
		2: {FixedAmount: decimal.RequireFromString("25.00"), IsFixed: true},
	},
}

var oneHundred = decimal.NewFromInt(100)

// PrizeFor computes the prize for a match count against a jackpot. Amounts
// stay in full decimal precision here; rounding to 2 places happens only when
// the amount is formatted for output.
func PrizeFor(drawType DrawType, matchedCount int, jackpot decimal.Decimal) (decimal.Decimal, bool) {
	rule, ok := prizeTables[drawType][matchedCount]
	if !ok {
		return decimal.Zero, false
	}
	if rule.IsFixed {
		return rule.FixedAmount, true
	}
	return jackpot.Mul(rule.JackpotPercent).Div(oneHundred), true
}

// FormatAmount renders a decimal amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
