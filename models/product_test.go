package models

import "testing"

func TestProductKey(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    string
	}{
		{"asin wins", Product{ASIN: "B0C1DE2FGH", URL: "https://www.amazon.com/dp/B0C1DE2FGH"}, "B0C1DE2FGH"},
		{"url fallback", Product{URL: "https://www.amazon.com/dp/unknown"}, "https://www.amazon.com/dp/unknown"},
		{"no key", Product{Title: "Untraceable"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.product.Key(); got != tt.want {
				t.Errorf("Key()=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestProductExtractable(t *testing.T) {
	if !(&Product{Title: "Widget"}).Extractable() {
		t.Errorf("title alone should be enough")
	}
	if !(&Product{ASIN: "B0C1DE2FGH"}).Extractable() {
		t.Errorf("asin alone should be enough")
	}
	if (&Product{URL: "https://www.amazon.com/dp/x", ImageURL: "x.jpg"}).Extractable() {
		t.Errorf("a record without title or asin is not extractable")
	}
}
