package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rnav/pricefetch/models"
)

var numberPattern = regexp.MustCompile(`\d[\d.,]*`)

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"¥", "JPY"},
	{"₹", "INR"},
}

var currencyCodes = map[string]struct{}{
	"USD": {}, "GBP": {}, "EUR": {}, "JPY": {},
	"INR": {}, "CAD": {}, "AUD": {}, "BRL": {},
}

// ParsePrice normalizes a decorated price string such as "$1,299.00" or
// "1.299,00 €" into a numeric amount plus currency code. The currency
// defaults to USD when the text carries no recognizable symbol or code.
func ParsePrice(text string) (*models.Price, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty price text")
	}

	raw := numberPattern.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("no digits in price %q", text)
	}

	amount, err := strconv.ParseFloat(normalizeSeparators(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", text, err)
	}

	return &models.Price{Amount: amount, Currency: detectCurrency(text)}, nil
}

// normalizeSeparators resolves thousands and decimal separators across
// both "1,299.00" and "1.299,00" conventions.
func normalizeSeparators(raw string) string {
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		raw = resolveSingleSeparator(raw, ",", lastComma)
	case lastDot >= 0:
		raw = resolveSingleSeparator(raw, ".", lastDot)
	}
	return raw
}

// resolveSingleSeparator decides whether a lone separator kind is
// decimal or thousands grouping: one occurrence followed by one or two
// digits reads as decimal, everything else as grouping.
func resolveSingleSeparator(raw, sep string, last int) string {
	trailing := len(raw) - last - 1
	if strings.Count(raw, sep) == 1 && trailing >= 1 && trailing <= 2 {
		if sep == "," {
			return strings.Replace(raw, ",", ".", 1)
		}
		return raw
	}
	return strings.ReplaceAll(raw, sep, "")
}

func detectCurrency(text string) string {
	for _, c := range currencySymbols {
		if strings.Contains(text, c.symbol) {
			return c.code
		}
	}
	for _, field := range strings.Fields(text) {
		upper := strings.ToUpper(strings.Trim(field, ".,"))
		if _, ok := currencyCodes[upper]; ok {
			return upper
		}
	}
	return "USD"
}
