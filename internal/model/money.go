package model

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// currencyTokens are stripped from amount cells before parsing.
var currencyTokens = []string{"CNY", "RMB", "EUR", "USD", "¥", "￥", "€", "$"}

// thousandsPattern matches amounts written with comma thousands separators
// and no decimal point, e.g. "1,234" or "12,345,678".
var thousandsPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)

// ParseAmount converts a spreadsheet cell to a decimal amount.
//
// Ingestion is lenient: a cell that cannot be read as a number becomes zero.
// The second return value is false only when a non-blank cell had to be
// coerced, so callers can report dirty data without failing the load.
//
// Accepted forms:
//
//	"1234.5"  "1,234.50"  "CNY 1,234.50"  "(250.00)"  "12,5"  "1.5e3"
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, true
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case thousandsPattern.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
