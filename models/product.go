// Package models defines data structures shared across the search pipeline.
package models

import "time"

// Price is a normalized monetary amount with its ISO currency code.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Product represents one listing extracted from a search-result page.
// Optional fields use pointers so "could not extract" stays distinct
// from a zero value.
type Product struct {
	ASIN         string    `json:"asin,omitempty"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ImageURL     string    `json:"image_url,omitempty"`
	Price        *Price    `json:"price,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewCount  *int      `json:"review_count,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Sponsored    bool      `json:"sponsored"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Key returns the deduplication key: the ASIN when present, the listing
// URL otherwise. An empty key means the product cannot be deduplicated.
func (p *Product) Key() string {
	if p.ASIN != "" {
		return p.ASIN
	}
	return p.URL
}

// Extractable reports whether enough of the record survived extraction
// to be worth returning. Records with neither a title nor an ASIN are
// dropped rather than emitted as empty rows.
func (p *Product) Extractable() bool {
	return p.Title != "" || p.ASIN != ""
}

// PageResult is the outcome of fetching and parsing a single result page.
type PageResult struct {
	PageNumber   int
	Products     []*Product
	Succeeded    bool
	ErrorDetail  string
	EndOfResults bool
}

// SearchResult is the final, immutable output of a pipeline run.
type SearchResult struct {
	Products       []*Product    `json:"products"`
	Query          string        `json:"query"`
	PagesRequested int           `json:"pages_requested"`
	PagesFetched   int           `json:"pages_fetched"`
	Duration       time.Duration `json:"duration"`
	Warnings       []string      `json:"warnings,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
}
