// Package parse extracts typed product records from search-result markup.
//
// Extraction is field-independent: a missing or malformed field never
// prevents extraction of the rest of its record or of other records on
// the page. Every function here is a pure function of the content it
// receives.
package parse

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rnav/pricefetch/config"
	"github.com/rnav/pricefetch/models"
)

var (
	asinPattern   = regexp.MustCompile(`/([A-Z0-9]{10})(?:[/?]|$)`)
	ratingPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	countPattern  = regexp.MustCompile(`[\d,]+`)
)

// Extractor parses one fetched page into candidate product records.
type Extractor struct {
	sel        Selectors
	base       *url.URL
	emptyState string
}

// NewExtractor builds an extractor resolving relative links against the
// configured base URL.
func NewExtractor(cfg *config.Config) (*Extractor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	return &Extractor{
		sel:        DefaultSelectors(),
		base:       base,
		emptyState: cfg.EmptyStateMarker,
	}, nil
}

// Extract parses the page content into a PageResult. A page with zero
// result blocks only succeeds when it carries the explicit empty-state
// marker; otherwise it is reported as a structural failure so callers
// can tell "layout changed" apart from "query returned nothing".
func (e *Extractor) Extract(html string, pageNumber int) *models.PageResult {
	result := &models.PageResult{PageNumber: pageNumber}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.ErrorDetail = fmt.Sprintf("parse page %d: %v", pageNumber, err)
		return result
	}

	blocks := doc.Find(e.sel.ResultBlock)
	if blocks.Length() == 0 {
		if doc.Find(e.emptyState).Length() > 0 {
			result.Succeeded = true
			result.EndOfResults = true
			return result
		}
		result.ErrorDetail = fmt.Sprintf("page %d: no result blocks and no empty-state marker", pageNumber)
		return result
	}

	now := time.Now()
	blocks.Each(func(_ int, block *goquery.Selection) {
		product := e.extractProduct(block, now)
		if product != nil && product.Extractable() {
			result.Products = append(result.Products, product)
		}
	})

	result.Succeeded = true
	return result
}

// extractProduct pulls each field through its own fallback chain.
// A field that cannot be extracted stays absent; it never fails the
// record or its siblings.
func (e *Extractor) extractProduct(block *goquery.Selection, now time.Time) *models.Product {
	product := &models.Product{ScrapedAt: now}

	product.Title = firstText(block, e.sel.Title)
	product.URL = e.extractLink(block)
	product.ASIN = e.extractASIN(block)
	product.ImageURL = firstImage(block, e.sel.Image)
	product.Price = e.extractPrice(block)
	product.Rating = e.extractRating(block)
	product.ReviewCount = e.extractReviewCount(block)
	product.Availability = firstText(block, e.sel.Availability)
	product.Sponsored = strings.Contains(block.Text(), "Sponsored")

	return product
}

func (e *Extractor) extractLink(block *goquery.Selection) string {
	for _, sel := range e.sel.Link {
		href, ok := block.Find(sel).First().Attr("href")
		if !ok || href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		return e.base.ResolveReference(ref).String()
	}
	return ""
}

func (e *Extractor) extractASIN(block *goquery.Selection) string {
	if asin, ok := block.Attr("data-asin"); ok && asin != "" {
		return asin
	}
	// Fall back to the catalog id embedded in the listing URL.
	for _, sel := range e.sel.Link {
		href, ok := block.Find(sel).First().Attr("href")
		if !ok || href == "" {
			continue
		}
		if m := asinPattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

func (e *Extractor) extractPrice(block *goquery.Selection) *models.Price {
	whole := strings.TrimSpace(block.Find(e.sel.PriceWhole).First().Text())
	fraction := strings.TrimSpace(block.Find(e.sel.PriceFraction).First().Text())
	if whole != "" && fraction != "" {
		price, err := ParsePrice(whole + "." + fraction)
		if err == nil {
			// The split layout drops the symbol, so recover the
			// currency from the full block text.
			price.Currency = detectCurrency(block.Text())
			return price
		}
	}

	for _, sel := range e.sel.PriceText {
		text := strings.TrimSpace(block.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if price, err := ParsePrice(text); err == nil {
			return price
		}
	}
	return nil
}

func (e *Extractor) extractRating(block *goquery.Selection) *float64 {
	for _, sel := range e.sel.Rating {
		text := block.Find(sel).First().Text()
		match := ratingPattern.FindString(text)
		if match == "" {
			continue
		}
		rating, err := strconv.ParseFloat(match, 64)
		if err != nil || rating < 0 || rating > 5 {
			continue
		}
		return &rating
	}
	return nil
}

func (e *Extractor) extractReviewCount(block *goquery.Selection) *int {
	for _, sel := range e.sel.ReviewCount {
		text := block.Find(sel).First().Text()
		match := countPattern.FindString(text)
		if match == "" {
			continue
		}
		count, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
		if err != nil || count < 0 {
			continue
		}
		return &count
	}
	return nil
}

func firstText(block *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		text := strings.TrimSpace(block.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func firstImage(block *goquery.Selection, chain []string) string {
	for _, sel := range chain {
		img := block.Find(sel).First()
		if src, ok := img.Attr("src"); ok && src != "" {
			return src
		}
		// Lazy-loaded images keep the real source in data-src.
		if src, ok := img.Attr("data-src"); ok && src != "" {
			return src
		}
	}
	return ""
}
