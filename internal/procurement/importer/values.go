package importer

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "Rp", "", "rp", "", "IDR", "")

// maxQuantity bounds quantities; larger cells are treated as unreadable.
var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// ParseAmount reads a non-negative money amount such as "1,500,000",
// "Rp 250000.50" or "Rp 1.500.000,75".
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = normalizeSeparators(amountCleaner.Replace(strings.TrimSpace(s)))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators rewrites a number to use "." as the decimal mark and no
// grouping. When both marks appear the last one is the decimal mark. A lone
// comma is a decimal mark unless exactly three digits follow it. Repeated
// marks are grouping. A lone dot stays a decimal mark.
func normalizeSeparators(s string) string {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		if len(s)-strings.Index(s, ",")-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// ParseQuantity reads a non-negative integer, truncating fractions. Anything
// unparseable or beyond maxQuantity is 0.
func ParseQuantity(s string) int {
	d, ok := ParseAmount(s)
	if !ok || d.GreaterThan(maxQuantity) {
		return 0
	}
	return int(d.IntPart())
}
