package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rnav/pricefetch/config"
	"github.com/rnav/pricefetch/fetch"
	"github.com/rnav/pricefetch/models"
)

// PageFetcher retrieves the raw content of a single page address.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetch.Result, error)
}

// PageExtractor turns raw page content into candidate records.
type PageExtractor interface {
	Extract(html string, pageNumber int) *models.PageResult
}

// URLBuilder computes the address of one result page.
type URLBuilder func(page int) (string, error)

// Paginator drives the fetcher and extractor across consecutive result
// pages. Parallelism 1 fetches pages one after another; higher values
// keep that many fetches in flight and restore page ordering by index
// before handing results back.
type Paginator struct {
	cfg       *config.Config
	fetcher   PageFetcher
	extractor PageExtractor
	metrics   *fetch.Metrics
}

// NewPaginator wires a paginator over the given fetch and parse stages.
func NewPaginator(cfg *config.Config, fetcher PageFetcher, extractor PageExtractor, metrics *fetch.Metrics) *Paginator {
	return &Paginator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		metrics:   metrics,
	}
}

// Run fetches pages 1..pages, stopping early when the configured policy
// demands it (fail-fast failure) or when a page explicitly signals that
// no further results exist. Results come back ordered by page number.
// A cancelled context stops the run and returns the pages that completed.
func (p *Paginator) Run(ctx context.Context, urlFor URLBuilder, pages int) []*models.PageResult {
	if p.cfg.Parallelism > 1 {
		return p.runConcurrent(ctx, urlFor, pages)
	}
	return p.runSequential(ctx, urlFor, pages)
}

func (p *Paginator) runSequential(ctx context.Context, urlFor URLBuilder, pages int) []*models.PageResult {
	results := make([]*models.PageResult, 0, pages)
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			break
		}
		result := p.fetchPage(ctx, urlFor, page)
		if result == nil {
			break
		}
		results = append(results, result)
		if !result.Succeeded && p.cfg.FailFast {
			break
		}
		if result.EndOfResults {
			break
		}
	}
	return results
}

func (p *Paginator) runConcurrent(ctx context.Context, urlFor URLBuilder, pages int) []*models.PageResult {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	byPage := make([]*models.PageResult, pages)
	sem := make(chan struct{}, p.cfg.Parallelism)
	var wg sync.WaitGroup

	// Lowest page that signalled end of results. Pages above it are
	// redundant and skipped; pages below it are still real work and
	// must run to completion even when the signal arrives first.
	var endAt atomic.Int64
	endAt.Store(int64(pages) + 1)

	for page := 1; page <= pages; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				return
			}
			defer func() { <-sem }()
			if int64(page) > endAt.Load() {
				return
			}

			result := p.fetchPage(runCtx, urlFor, page)
			if result == nil {
				return
			}
			byPage[page-1] = result
			if result.EndOfResults {
				for {
					cur := endAt.Load()
					if int64(page) >= cur || endAt.CompareAndSwap(cur, int64(page)) {
						break
					}
				}
			}
			if !result.Succeeded && p.cfg.FailFast {
				cancel()
			}
		}(page)
	}
	wg.Wait()

	// Ordering comes from the page index, not completion order.
	results := make([]*models.PageResult, 0, pages)
	for _, result := range byPage {
		if result == nil {
			continue
		}
		results = append(results, result)
		if result.EndOfResults {
			break
		}
	}
	return results
}

// fetchPage runs fetch+extract for one page. A fetch failure becomes a
// failed PageResult rather than an error; a cancelled context yields nil
// so callers drop the abandoned page entirely.
func (p *Paginator) fetchPage(ctx context.Context, urlFor URLBuilder, page int) *models.PageResult {
	pageURL, err := urlFor(page)
	if err != nil {
		return &models.PageResult{PageNumber: page, ErrorDetail: err.Error()}
	}

	res, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("page fetch failed", slog.Int("page", page), slog.Any("error", err))
		return &models.PageResult{PageNumber: page, ErrorDetail: err.Error()}
	}

	result := p.extractor.Extract(res.HTML, page)
	if result.Succeeded {
		p.metrics.IncPages()
		p.metrics.AddProducts(len(result.Products))
		slog.Debug("page extracted",
			slog.Int("page", page),
			slog.Int("products", len(result.Products)),
			slog.Bool("end_of_results", result.EndOfResults),
		)
	}
	return result
}

// MergeProducts flattens page results in page order, optionally dropping
// later candidates whose dedup key collides with an earlier one. Records
// with no key at all always pass through.
func MergeProducts(results []*models.PageResult, dedupe bool) []*models.Product {
	ordered := make([]*models.PageResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	var merged []*models.Product
	seen := make(map[string]struct{})
	for _, result := range ordered {
		for _, product := range result.Products {
			if dedupe {
				key := product.Key()
				if key != "" {
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
			}
			merged = append(merged, product)
		}
	}
	return merged
}
