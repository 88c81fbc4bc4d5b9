// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount formats a decimal amount with a currency code, grouping the
// integer part with commas.
func FormatAmount(amount decimal.Decimal, currency string) string {
	negative := amount.IsNegative()
	str := amount.Abs().StringFixed(2)
	parts := strings.Split(str, ".")
	formatted := groupThousands(parts[0]) + "." + parts[1]

	result := formatted
	if currency != "" {
		result = currency + " " + formatted
	}
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(value decimal.Decimal) string {
	sign := ""
	if value.IsPositive() {
		sign = "+"
	}
	return sign + value.StringFixed(2) + "%"
}

// FormatPnL formats P&L with an explicit sign on gains.
func FormatPnL(pnl decimal.Decimal, currency string) string {
	formatted := FormatAmount(pnl, currency)
	if pnl.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a quantity, trimming insignificant trailing zeros.
func FormatQuantity(qty decimal.Decimal) string {
	s := qty.String()
	if !strings.Contains(s, ".") {
		return groupThousands(s)
	}
	return s
}

// Truncate shortens a string for table display.
func Truncate(s string, max int) string {
	if len(s) <= max || max < 4 {
		return s
	}
	return fmt.Sprintf("%s...", s[:max-3])
}
