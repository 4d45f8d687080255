// Package pipeline coordinates fetching, extraction, pagination, and
// filtering into a single search run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rnav/pricefetch/config"
	"github.com/rnav/pricefetch/fetch"
	"github.com/rnav/pricefetch/models"
	"github.com/rnav/pricefetch/parse"
)

// ErrInvalidInput marks configuration-class failures rejected before any
// network activity.
var ErrInvalidInput = errors.New("invalid input")

// Criteria describes one search run: either a query with a page count,
// or a direct page address (single-page mode). Price bounds, when set,
// override the configured defaults.
type Criteria struct {
	Query    string
	URL      string
	Pages    int
	MinPrice *float64
	MaxPrice *float64
}

// Service is the top-level pipeline entry point.
type Service struct {
	cfg       *config.Config
	paginator *Paginator
	metrics   *fetch.Metrics
}

// NewService builds the full pipeline stack from cfg.
func NewService(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	metrics := fetch.NewMetrics()
	limiter := fetch.NewLimiter(cfg.RequestsPerMinute)
	fetcher := fetch.NewFetcher(cfg, limiter, metrics)
	extractor, err := parse.NewExtractor(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return &Service{
		cfg:       cfg,
		paginator: NewPaginator(cfg, fetcher, extractor, metrics),
		metrics:   metrics,
	}, nil
}

// Metrics exposes the run's Prometheus registry for an optional listener.
func (s *Service) Metrics() *fetch.Metrics {
	return s.metrics
}

// Run executes a search and always returns a structured result for
// anything past input validation: page-level failures become warnings,
// a fully failed run returns zero products plus its warnings. Only
// invalid criteria and, in fail-fast mode, page failures come back as
// errors.
func (s *Service) Run(ctx context.Context, criteria Criteria) (*models.SearchResult, error) {
	start := time.Now()
	var warnings []string

	label, pages, urlFor, err := s.plan(criteria, &warnings)
	if err != nil {
		return nil, err
	}

	slog.Info("starting search",
		slog.String("target", label),
		slog.Int("pages", pages),
		slog.Int("parallelism", s.cfg.Parallelism),
	)

	results := s.paginator.Run(ctx, urlFor, pages)

	pagesFetched := 0
	for _, result := range results {
		if result.Succeeded {
			pagesFetched++
		} else {
			warnings = append(warnings, fmt.Sprintf("page %d: %s", result.PageNumber, result.ErrorDetail))
		}
	}
	if ctx.Err() != nil {
		warnings = append(warnings, fmt.Sprintf("run terminated early: %v", ctx.Err()))
	}

	if s.cfg.FailFast {
		for _, result := range results {
			if !result.Succeeded {
				return nil, fmt.Errorf("page %d failed: %s", result.PageNumber, result.ErrorDetail)
			}
		}
	}

	products := MergeProducts(results, s.cfg.Deduplicate)
	minPrice, maxPrice := s.resolveBounds(criteria)
	products = FilterByPrice(products, minPrice, maxPrice)

	end := time.Now()
	result := &models.SearchResult{
		Products:       products,
		Query:          label,
		PagesRequested: pages,
		PagesFetched:   pagesFetched,
		Duration:       end.Sub(start),
		Warnings:       warnings,
		StartTime:      start,
		EndTime:        end,
	}

	slog.Info("search finished",
		slog.String("target", label),
		slog.Int("products", len(result.Products)),
		slog.Int("pages_fetched", result.PagesFetched),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// plan validates the criteria and resolves the page count and URL
// builder for the run. Out-of-range page counts are clamped with a
// warning rather than rejected.
func (s *Service) plan(criteria Criteria, warnings *[]string) (string, int, URLBuilder, error) {
	if criteria.URL != "" {
		if err := ValidateTargetURL(criteria.URL); err != nil {
			return "", 0, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		label := criteria.URL
		if query := ExtractQuery(criteria.URL); query != "" {
			label = query
		}
		urlFor := func(int) (string, error) { return criteria.URL, nil }
		return label, 1, urlFor, nil
	}

	if err := ValidateQuery(criteria.Query); err != nil {
		return "", 0, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	pages := criteria.Pages
	if pages == 0 {
		pages = s.cfg.DefaultPages
	}
	if pages < 1 {
		*warnings = append(*warnings, fmt.Sprintf("page count %d below minimum, clamped to 1", pages))
		pages = 1
	}
	if pages > s.cfg.MaxPages {
		*warnings = append(*warnings, fmt.Sprintf("page count %d above maximum, clamped to %d", pages, s.cfg.MaxPages))
		pages = s.cfg.MaxPages
	}

	minPrice, maxPrice := s.resolveBounds(criteria)
	filters := SearchFilters{MinPrice: minPrice, MaxPrice: maxPrice}
	urlFor := func(page int) (string, error) {
		return BuildSearchURL(s.cfg.BaseURL, criteria.Query, page, filters)
	}
	return criteria.Query, pages, urlFor, nil
}

func (s *Service) resolveBounds(criteria Criteria) (*float64, *float64) {
	minPrice := criteria.MinPrice
	if minPrice == nil {
		minPrice = s.cfg.MinPrice
	}
	maxPrice := criteria.MaxPrice
	if maxPrice == nil {
		maxPrice = s.cfg.MaxPrice
	}
	return minPrice, maxPrice
}

// FilterByPrice keeps products whose price falls inside the inclusive
// bounds. When any bound is set, products without a price are excluded:
// their price is unknown, not zero.
func FilterByPrice(products []*models.Product, minPrice, maxPrice *float64) []*models.Product {
	if minPrice == nil && maxPrice == nil {
		return products
	}

	filtered := make([]*models.Product, 0, len(products))
	for _, product := range products {
		if product.Price == nil {
			continue
		}
		if minPrice != nil && product.Price.Amount < *minPrice {
			continue
		}
		if maxPrice != nil && product.Price.Amount > *maxPrice {
			continue
		}
		filtered = append(filtered, product)
	}
	return filtered
}
