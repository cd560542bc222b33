package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCOP renders whole pesos with "." thousands separators, e.g. 150000 -> "150.000".
func FormatCOP(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().StringFixed(0)
	var b strings.Builder
	if amount.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatPayout is the "$X COP" label used in technician and client messages.
func FormatPayout(amount decimal.Decimal) string {
	return "$" + FormatCOP(amount) + " COP"
}
