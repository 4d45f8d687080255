package parse

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   float64
		currency string
	}{
		{"dollar with grouping", "$1,299.00", 1299.00, "USD"},
		{"pound", "£12.50", 12.50, "GBP"},
		{"euro comma decimal", "1.299,00 €", 1299.00, "EUR"},
		{"euro short", "€5,99", 5.99, "EUR"},
		{"lone comma grouping", "12,345", 12345, "USD"},
		{"lone dot grouping", "1.234", 1234, "USD"},
		{"yen no decimals", "¥1200", 1200, "JPY"},
		{"trailing currency code", "19.99 CAD", 19.99, "CAD"},
		{"surrounding text", "Price: 42", 42, "USD"},
		{"whitespace", "  $7.99  ", 7.99, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := ParsePrice(tt.text)
			if err != nil {
				t.Fatalf("ParsePrice(%q): %v", tt.text, err)
			}
			if price.Amount != tt.amount {
				t.Errorf("amount=%v, want %v", price.Amount, tt.amount)
			}
			if price.Currency != tt.currency {
				t.Errorf("currency=%q, want %q", price.Currency, tt.currency)
			}
		})
	}
}

func TestParsePriceRejectsUnusableText(t *testing.T) {
	for _, text := range []string{"", "   ", "Currently unavailable", "$"} {
		if _, err := ParsePrice(text); err == nil {
			t.Errorf("ParsePrice(%q): expected error", text)
		}
	}
}
