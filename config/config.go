package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the resolved settings for a pipeline run.
type Config struct {
	BaseURL        string
	Marketplace    string
	UserAgent      string
	AcceptLanguage string

	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	RequestsPerMinute int
	RespectRobotsTxt  bool

	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration

	DefaultPages int
	MaxPages     int
	Deduplicate  bool
	FailFast     bool
	Parallelism  int

	// EmptyStateMarker is the selector that marks a legitimately empty
	// result page, as opposed to a page whose layout we failed to parse.
	// The target site may change it, so it is configuration, not code.
	EmptyStateMarker string

	MinPrice *float64
	MaxPrice *float64

	OutputFile   string
	OutputFormat string // csv, json, or dual
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for the public marketplace.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.amazon.com",
		Marketplace:       "US",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage:    "en-US,en;q=0.9",
		Timeout:           15 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		RetryBackoffMax:   8 * time.Second,
		RequestsPerMinute: 30,
		RespectRobotsTxt:  false,
		CacheEnabled:      false,
		CacheSize:         128,
		CacheTTL:          5 * time.Minute,
		DefaultPages:      1,
		MaxPages:          10,
		Deduplicate:       true,
		FailFast:          false,
		Parallelism:       1,
		EmptyStateMarker:  "div[data-component-type='s-no-result']",
		OutputFile:        "data/results.csv",
		OutputFormat:      "csv",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive")
	}
	if c.CacheEnabled && c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive when the cache is enabled")
	}
	if c.DefaultPages <= 0 {
		return fmt.Errorf("default pages must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.DefaultPages > c.MaxPages {
		return fmt.Errorf("default pages (%d) cannot exceed max pages (%d)", c.DefaultPages, c.MaxPages)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.EmptyStateMarker == "" {
		return fmt.Errorf("empty-state marker cannot be empty")
	}
	if c.MinPrice != nil && *c.MinPrice < 0 {
		return fmt.Errorf("min price cannot be negative")
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return fmt.Errorf("min price (%.2f) cannot exceed max price (%.2f)", *c.MinPrice, *c.MaxPrice)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}
