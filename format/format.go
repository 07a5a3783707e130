// Package format turns raw catalog values into display strings.
package format

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyPrefix marks every formatted price
const CurrencyPrefix = "ETB"

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats v with en-US digit grouping, e.g. "ETB 1,234,567"
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return CurrencyPrefix + " 0"
	}
	return printer.Sprintf("%s %v", CurrencyPrefix, number.Decimal(v, number.MaxFractionDigits(3)))
}

// OptionalCurrency formats a possibly missing price; missing values print as "ETB 0"
func OptionalCurrency(v *float64) string {
	if v == nil {
		return CurrencyPrefix + " 0"
	}
	return Currency(*v)
}

// Date parses an RFC 3339 or YYYY-MM-DD string and renders it like
// "January 2, 2006". Anything else is "Invalid Date".
func Date(s string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t)
		}
	}
	return "Invalid Date"
}

// Day renders a stored timestamp the way Date does; the zero time is invalid
func Day(t time.Time) string {
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.Format("January 2, 2006")
}

// Mileage renders a distance like "12,345 mi"
func Mileage(v int) string {
	return printer.Sprintf("%d mi", v)
}
