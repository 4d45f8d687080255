package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rnav/pricefetch/config"
	"github.com/rnav/pricefetch/models"
	"github.com/rnav/pricefetch/pipeline"
)

func main() {
	cfg := config.DefaultConfig()
	if err := config.FromEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	query := flag.String("query", "", "Search query")
	pageURL := flag.String("url", "", "Direct search page URL (single-page mode)")
	pages := flag.Int("pages", cfg.DefaultPages, "Number of result pages to fetch")
	minPrice := flag.Float64("min-price", -1, "Minimum price filter, inclusive")
	maxPrice := flag.Float64("max-price", -1, "Maximum price filter, inclusive")
	marketplace := flag.String("marketplace", cfg.Marketplace, "Marketplace code (US, UK, DE, ...)")
	rpm := flag.Int("rpm", cfg.RequestsPerMinute, "Request ceiling in requests per minute")
	maxRetries := flag.Int("max-retries", cfg.MaxRetries, "Maximum retry attempts per page")
	retryBackoffMs := flag.Int("retry-backoff", int(cfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(cfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	timeoutSec := flag.Int("timeout", int(cfg.Timeout/time.Second), "Per-request timeout (seconds)")
	parallel := flag.Int("parallel", cfg.Parallelism, "Concurrent page fetches (1 = sequential)")
	failFast := flag.Bool("fail-fast", cfg.FailFast, "Abort the run on the first page failure")
	noDedupe := flag.Bool("no-dedupe", !cfg.Deduplicate, "Keep duplicate listings")
	cache := flag.Bool("cache", cfg.CacheEnabled, "Enable the in-memory response cache")
	outputFile := flag.String("output", cfg.OutputFile, "Output file path")
	outputFormat := flag.String("format", cfg.OutputFormat, "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	// A base URL from the environment wins unless -marketplace was changed.
	if code := strings.ToUpper(*marketplace); code != cfg.Marketplace {
		base, ok := pipeline.MarketplaceBaseURL(code)
		if !ok {
			slog.Error("unknown marketplace", slog.String("code", *marketplace))
			os.Exit(1)
		}
		cfg.BaseURL = base
		cfg.Marketplace = code
	}

	cfg.RequestsPerMinute = *rpm
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.Parallelism = *parallel
	cfg.FailFast = *failFast
	cfg.Deduplicate = !*noDedupe
	cfg.CacheEnabled = *cache
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *query == "" && *pageURL == "" {
		fmt.Fprintln(os.Stderr, "either -query or -url is required")
		flag.Usage()
		os.Exit(2)
	}

	criteria := pipeline.Criteria{
		Query: *query,
		URL:   *pageURL,
		Pages: *pages,
	}
	if *minPrice >= 0 {
		v := *minPrice
		criteria.MinPrice = &v
	}
	if *maxPrice >= 0 {
		v := *maxPrice
		criteria.MaxPrice = &v
	}

	service, err := pipeline.NewService(cfg)
	if err != nil {
		slog.Error("initialising pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing completed pages")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(service.Metrics().Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := service.Run(ctx, criteria)
	if err != nil {
		slog.Error("search failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Write(result.Products); err != nil {
		slog.Error("writing output", slog.Any("error", err))
		os.Exit(1)
	}
	if len(result.Products) > 0 {
		if err := writer.Validate(); err != nil {
			slog.Error("output validation failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputFile)
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.SearchResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Search complete")
	fmt.Printf("  Target:        %s\n", result.Query)
	fmt.Printf("  Products:      %d\n", len(result.Products))
	fmt.Printf("  Pages:         %d/%d fetched\n", result.PagesFetched, result.PagesRequested)
	fmt.Printf("  Duration:      %v\n", result.Duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	if len(result.Warnings) > 0 {
		fmt.Printf("  Warnings:      %d\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Printf("    - %s\n", warning)
		}
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
