package pipeline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxQueryLength bounds the search query, matching the site's own form limit.
const maxQueryLength = 200

var marketplaceBaseURLs = map[string]string{
	"US": "https://www.amazon.com",
	"CA": "https://www.amazon.ca",
	"UK": "https://www.amazon.co.uk",
	"DE": "https://www.amazon.de",
	"FR": "https://www.amazon.fr",
	"IT": "https://www.amazon.it",
	"ES": "https://www.amazon.es",
	"JP": "https://www.amazon.co.jp",
	"IN": "https://www.amazon.in",
	"BR": "https://www.amazon.com.br",
}

var sortParams = map[string]string{
	"relevance":      "relevanceblender",
	"price_low_high": "price-asc-rank",
	"price_high_low": "price-desc-rank",
	"newest":         "date-desc-rank",
	"featured":       "featured-rank",
}

// MarketplaceBaseURL maps a marketplace code to its site address.
func MarketplaceBaseURL(code string) (string, bool) {
	base, ok := marketplaceBaseURLs[strings.ToUpper(code)]
	return base, ok
}

// SearchFilters narrows a search server-side before extraction runs.
type SearchFilters struct {
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Category string
}

// BuildSearchURL computes the address of one result page for a query.
func BuildSearchURL(baseURL, query string, page int, filters SearchFilters) (string, error) {
	if err := ValidateQuery(query); err != nil {
		return "", err
	}
	if page < 1 {
		return "", fmt.Errorf("page must be at least 1, got %d", page)
	}

	params := url.Values{}
	params.Set("k", strings.TrimSpace(query))
	params.Set("page", strconv.Itoa(page))

	if filters.MinPrice != nil {
		params.Set("low-price", strconv.FormatFloat(*filters.MinPrice, 'f', -1, 64))
	}
	if filters.MaxPrice != nil {
		params.Set("high-price", strconv.FormatFloat(*filters.MaxPrice, 'f', -1, 64))
	}
	if filters.SortBy != "" {
		sortValue, ok := sortParams[filters.SortBy]
		if !ok {
			return "", fmt.Errorf("unknown sort order %q", filters.SortBy)
		}
		params.Set("s", sortValue)
	}
	if filters.Category != "" {
		params.Set("i", filters.Category)
	}

	return strings.TrimSuffix(baseURL, "/") + "/s?" + params.Encode(), nil
}

// ValidateQuery rejects queries that cannot form a search address.
func ValidateQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return fmt.Errorf("search query too long (max %d characters)", maxQueryLength)
	}
	return nil
}

// ValidateTargetURL checks a direct page address before any network
// activity happens for the legacy single-URL mode.
func ValidateTargetURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// ExtractQuery recovers the search query from a pasted search URL, or
// returns an empty string when the URL carries none.
func ExtractQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	values := parsed.Query()
	for _, key := range []string{"k", "keywords", "field-keywords"} {
		if v := values.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// IsSearchURL reports whether the address points at a search-result page.
func IsSearchURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Host, "amazon.") &&
		parsed.Path == "/s" &&
		parsed.Query().Get("k") != ""
}
