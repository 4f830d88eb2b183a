package pricing

import "github.com/shopspring/decimal"

// FormatMinor renders a minor-unit amount as a decimal string with two
// fractional digits, e.g. 249000 -> "2490.00". The engine itself always
// returns unrounded minor units; formatting is a display concern.
func FormatMinor(m Money) string {
	return decimal.NewFromInt(m).Div(decimal.NewFromInt(100)).StringFixed(2)
}
