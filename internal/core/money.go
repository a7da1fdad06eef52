// Package core holds the bookkeeping domain model.
//
// This file contains parsing and formatting helpers for monetary amounts.
// Amounts are exact decimals; floats never enter the money path.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols maps the currency codes offered in the profile form to a
// display symbol. Unknown codes fall back to "CODE " prefix formatting.
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// ParseAmount converts a user-entered amount string to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: direction is carried by the transaction kind, so the stored amount
// is always strictly positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	// Money has at most two fractional digits; round half-up beyond that.
	return d.Round(2), nil
}

// FormatAmount renders an amount for display with the profile's currency.
// An empty currency code defaults to EUR.
func FormatAmount(d decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "EUR"
	}
	if sym, ok := currencySymbols[code]; ok {
		return sym + d.StringFixed(2)
	}
	return code + " " + d.StringFixed(2)
}
