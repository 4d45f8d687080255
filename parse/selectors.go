package parse

// Selectors holds the structural heuristics used to locate result
// blocks and their fields. Every field carries its own fallback chain;
// the markup is not contractually stable, so each entry is a guess
// ordered from most to least specific.
type Selectors struct {
	// ResultBlock locates one candidate record container.
	ResultBlock string

	Title []string
	Link  []string
	Image []string

	PriceWhole    string
	PriceFraction string
	PriceText     []string

	Rating      []string
	ReviewCount []string

	Availability []string
}

// DefaultSelectors returns the selector set for the current search
// result layout of the target marketplace.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultBlock: "div[data-component-type='s-search-result']",
		Title: []string{
			"h2 a span",
			".a-size-medium.a-color-base.a-text-normal",
		},
		Link: []string{
			"h2 a",
			"a.a-link-normal.s-no-outline",
		},
		Image: []string{
			"img.s-image",
			"img[data-a-image-name='productImage']",
		},
		PriceWhole:    ".a-price .a-price-whole",
		PriceFraction: ".a-price .a-price-fraction",
		PriceText: []string{
			".a-price .a-offscreen",
			".a-price-range .a-price .a-offscreen",
		},
		Rating: []string{
			"span.a-icon-alt",
		},
		ReviewCount: []string{
			"span.a-size-base.s-underline-text",
			"a .a-size-base",
		},
		Availability: []string{
			".a-color-price",
			".a-size-base.a-color-price",
		},
	}
}
