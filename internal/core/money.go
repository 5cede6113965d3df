// Package core provides the cost dashboard pipeline: column resolution,
// record normalization, filtering, aggregation and currency formatting.
//
// This file contains the currency formatter used at display time.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyMarker prefixes every formatted amount.
const CurrencyMarker = "R$"

// FormatCurrency renders an amount with "." as thousands separator, ","
// as decimal separator and two decimal digits. Rounding is half away from
// zero. The sign goes after the marker.
//
// Examples:
//
//	FormatCurrency(0)        -> "R$ 0,00"
//	FormatCurrency(1234.5)   -> "R$ 1.234,50"
//	FormatCurrency(1000000)  -> "R$ 1.000.000,00"
//	FormatCurrency(-1234.5)  -> "R$ -1.234,50"
func FormatCurrency(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	fixed := rounded.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return CurrencyMarker + " " + sign + groupThousands(intPart) + "," + frac
}

// FormatCurrencyFloat is FormatCurrency for plain floats.
func FormatCurrencyFloat(f float64) string {
	return FormatCurrency(decimal.NewFromFloat(f))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
