package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rnav/pricefetch/config"
	"github.com/rnav/pricefetch/fetch"
	"github.com/rnav/pricefetch/models"
)

func newTestService(cfg *config.Config, ext *fakeExtractor) (*Service, *fakeFetcher) {
	fetcher := &fakeFetcher{}
	metrics := fetch.NewMetrics()
	svc := &Service{
		cfg:       cfg,
		paginator: NewPaginator(cfg, fetcher, ext, metrics),
		metrics:   metrics,
	}
	return svc, fetcher
}

func pricedProduct(asin string, amount float64) *models.Product {
	return &models.Product{
		ASIN:  asin,
		Title: "Product " + asin,
		Price: &models.Price{Amount: amount, Currency: "USD"},
	}
}

func TestServiceBestEffortRun(t *testing.T) {
	cfg := config.DefaultConfig()
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		1: {PageNumber: 1, Succeeded: true, Products: []*models.Product{pricedProduct("B000000001", 10)}},
		2: failPage(2, "status 500 after 4 attempt(s)"),
		3: {PageNumber: 3, Succeeded: true, Products: []*models.Product{pricedProduct("B000000003", 30)}},
	}}
	svc, _ := newTestService(cfg, ext)

	result, err := svc.Run(context.Background(), Criteria{Query: "cordless drill", Pages: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PagesRequested != 3 {
		t.Errorf("pages requested=%d, want 3", result.PagesRequested)
	}
	if result.PagesFetched != 2 {
		t.Errorf("pages fetched=%d, want 2", result.PagesFetched)
	}
	if len(result.Products) != 2 {
		t.Errorf("products=%d, want 2", len(result.Products))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings=%v, want exactly 1", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "page 2") {
		t.Errorf("warning should name the failed page: %q", result.Warnings[0])
	}
	if result.Query != "cordless drill" {
		t.Errorf("query=%q", result.Query)
	}
	if result.Duration <= 0 {
		t.Errorf("duration=%v", result.Duration)
	}
}

func TestServiceFailFastReturnsError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FailFast = true
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		2: failPage(2, "layout changed"),
	}}
	svc, _ := newTestService(cfg, ext)

	result, err := svc.Run(context.Background(), Criteria{Query: "drill", Pages: 3})
	if err == nil {
		t.Fatalf("expected error in fail-fast mode")
	}
	if result != nil {
		t.Fatalf("fail-fast run should not return a result")
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("error should name the failed page: %v", err)
	}
}

func TestServiceAllPagesFailStillReturnsResult(t *testing.T) {
	cfg := config.DefaultConfig()
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		1: failPage(1, "robot check"),
		2: failPage(2, "robot check"),
	}}
	svc, _ := newTestService(cfg, ext)

	result, err := svc.Run(context.Background(), Criteria{Query: "drill", Pages: 2})
	if err != nil {
		t.Fatalf("best-effort run should not error: %v", err)
	}
	if len(result.Products) != 0 {
		t.Errorf("products=%d, want 0", len(result.Products))
	}
	if result.PagesFetched != 0 {
		t.Errorf("pages fetched=%d, want 0", result.PagesFetched)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("warnings=%v, want 2", result.Warnings)
	}
}

func TestServiceClampsPageCount(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxPages = 4
	svc, fetcher := newTestService(cfg, &fakeExtractor{})

	result, err := svc.Run(context.Background(), Criteria{Query: "drill", Pages: 50})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PagesRequested != 4 {
		t.Errorf("pages requested=%d, want clamp to 4", result.PagesRequested)
	}
	if fetcher.callCount() != 4 {
		t.Errorf("fetch calls=%d, want 4", fetcher.callCount())
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "clamped") {
		t.Errorf("expected a clamp warning, got %v", result.Warnings)
	}

	result, err = svc.Run(context.Background(), Criteria{Query: "drill", Pages: -3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PagesRequested != 1 {
		t.Errorf("pages requested=%d, want clamp to 1", result.PagesRequested)
	}
}

func TestServiceDefaultsPageCount(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DefaultPages = 2
	svc, fetcher := newTestService(cfg, &fakeExtractor{})

	result, err := svc.Run(context.Background(), Criteria{Query: "drill"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PagesRequested != 2 {
		t.Errorf("pages requested=%d, want configured default 2", result.PagesRequested)
	}
	if fetcher.callCount() != 2 {
		t.Errorf("fetch calls=%d, want 2", fetcher.callCount())
	}
}

func TestServicePriceFiltering(t *testing.T) {
	unpriced := &models.Product{ASIN: "B0UNPRICED", Title: "No price"}
	cfg := config.DefaultConfig()
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		1: {PageNumber: 1, Succeeded: true, Products: []*models.Product{
			pricedProduct("B000000001", 25),
			pricedProduct("B000000002", 75),
			pricedProduct("B000000003", 300),
			unpriced,
		}},
	}}
	svc, _ := newTestService(cfg, ext)

	result, err := svc.Run(context.Background(), Criteria{
		Query:    "drill",
		Pages:    1,
		MinPrice: floatPtr(50),
		MaxPrice: floatPtr(200),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("products=%d, want 1: %+v", len(result.Products), result.Products)
	}
	if result.Products[0].ASIN != "B000000002" {
		t.Errorf("kept %q, want the in-range product", result.Products[0].ASIN)
	}
}

func TestServiceDeduplicatesAcrossPages(t *testing.T) {
	cfg := config.DefaultConfig()
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		1: okPage(1, "B0DUPLICAT", "B000000001"),
		2: okPage(2, "B0DUPLICAT", "B000000002"),
	}}
	svc, _ := newTestService(cfg, ext)

	result, err := svc.Run(context.Background(), Criteria{Query: "drill", Pages: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Products) != 3 {
		t.Fatalf("products=%d, want 3 after dedup", len(result.Products))
	}
}

func TestServiceRejectsInvalidCriteria(t *testing.T) {
	svc, fetcher := newTestService(config.DefaultConfig(), &fakeExtractor{})

	for _, criteria := range []Criteria{
		{},
		{Query: strings.Repeat("a", 201)},
		{URL: "ftp://example.com/page"},
	} {
		if _, err := svc.Run(context.Background(), criteria); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("criteria %+v: err=%v, want ErrInvalidInput", criteria, err)
		}
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("invalid criteria must not reach the network")
	}
}

func TestServiceDirectURLMode(t *testing.T) {
	cfg := config.DefaultConfig()
	ext := &fakeExtractor{results: map[int]*models.PageResult{
		1: okPage(1, "B000000001"),
	}}
	svc, fetcher := newTestService(cfg, ext)

	target := "https://www.amazon.com/s?k=drill&page=7"
	result, err := svc.Run(context.Background(), Criteria{URL: target})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PagesRequested != 1 {
		t.Errorf("pages requested=%d, want 1", result.PagesRequested)
	}
	if fetcher.callCount() != 1 || fetcher.calls[0] != target {
		t.Errorf("fetch calls=%v, want exactly the given URL", fetcher.calls)
	}
	if len(result.Products) != 1 {
		t.Errorf("products=%d, want 1", len(result.Products))
	}
	if result.Query != "drill" {
		t.Errorf("label=%q, want the query recovered from the URL", result.Query)
	}
}

func TestFilterByPrice(t *testing.T) {
	priced := func(amount float64) *models.Product {
		return &models.Product{Title: "p", Price: &models.Price{Amount: amount, Currency: "USD"}}
	}
	unpriced := &models.Product{Title: "unpriced"}
	products := []*models.Product{priced(10), priced(50), priced(200), priced(500), unpriced}

	if got := FilterByPrice(products, nil, nil); len(got) != 5 {
		t.Errorf("no bounds: kept %d, want all 5", len(got))
	}
	if got := FilterByPrice(products, floatPtr(50), nil); len(got) != 3 {
		t.Errorf("min only: kept %d, want 3", len(got))
	}
	if got := FilterByPrice(products, nil, floatPtr(200)); len(got) != 3 {
		t.Errorf("max only: kept %d, want 3", len(got))
	}
	// Bounds are inclusive.
	if got := FilterByPrice(products, floatPtr(50), floatPtr(200)); len(got) != 2 {
		t.Errorf("both bounds: kept %d, want 2", len(got))
	}
}
