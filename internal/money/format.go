package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders cents as en-US currency, e.g. 123456 -> "$1,234.56".
func FormatUSD(cents int64) string {
	s := decimal.New(cents, -2).Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if cents < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
