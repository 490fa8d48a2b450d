// Package core provides money parsing and handling utilities.
//
// This file contains the lenient number parsing applied to every numeric
// cell read back from the ledger, and the currency display used in replies.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = money.INR

// ParseLooseNumber extracts a number from a cell value.
//
// Everything except digits, '.' and '-' is stripped first, so currency
// symbols and thousands separators are tolerated. The longest numeric prefix
// of what remains is parsed. It never fails: unparseable input yields zero.
//
// Examples:
//
//	ParseLooseNumber("₹1,200.50") -> 1200.5
//	ParseLooseNumber("-300")      -> -300
//	ParseLooseNumber("n/a")       -> 0
func ParseLooseNumber(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)

	end := 0
	if end < len(cleaned) && cleaned[end] == '-' {
		end++
	}
	digits := 0
	for end < len(cleaned) && cleaned[end] >= '0' && cleaned[end] <= '9' {
		end++
		digits++
	}
	if end < len(cleaned) && cleaned[end] == '.' {
		frac := end + 1
		for frac < len(cleaned) && cleaned[frac] >= '0' && cleaned[frac] <= '9' {
			frac++
			digits++
		}
		if frac > end+1 {
			end = frac
		}
	}
	if digits == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned[:end])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatMoney renders amount in the given ISO currency, e.g. "₹5,000.00".
func FormatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	minor := amount.Shift(int32(fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}
