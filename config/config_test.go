package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "base url without host",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = -1
			},
			wantErr: "max retries",
		},
		{
			name: "backoff exceeds cap",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 10 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "zero rate limit",
			mutate: func(cfg *Config) {
				cfg.RequestsPerMinute = 0
			},
			wantErr: "requests per minute",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "default pages above max",
			mutate: func(cfg *Config) {
				cfg.DefaultPages = 20
				cfg.MaxPages = 10
			},
			wantErr: "default pages",
		},
		{
			name: "zero parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = 0
			},
			wantErr: "parallelism",
		},
		{
			name: "inverted price bounds",
			mutate: func(cfg *Config) {
				low, high := 100.0, 10.0
				cfg.MinPrice = &low
				cfg.MaxPrice = &high
			},
			wantErr: "min price",
		},
		{
			name: "empty marker",
			mutate: func(cfg *Config) {
				cfg.EmptyStateMarker = ""
			},
			wantErr: "empty-state marker",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AMZ_BASE_URL", "https://www.amazon.co.uk")
	t.Setenv("AMZ_MARKETPLACE", "UK")
	t.Setenv("AMZ_HTTP_TIMEOUT", "30s")
	t.Setenv("AMZ_HTTP_MAX_RETRIES", "5")
	t.Setenv("AMZ_RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("AMZ_CACHE_ENABLED", "true")
	t.Setenv("AMZ_MAX_PAGES", "20")
	t.Setenv("AMZ_DEDUPLICATE", "no")

	cfg := DefaultConfig()
	if err := FromEnv(cfg); err != nil {
		t.Fatalf("from env: %v", err)
	}

	if cfg.BaseURL != "https://www.amazon.co.uk" {
		t.Fatalf("base url=%q", cfg.BaseURL)
	}
	if cfg.Marketplace != "UK" {
		t.Fatalf("marketplace=%q", cfg.Marketplace)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout=%v", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("max retries=%d", cfg.MaxRetries)
	}
	if cfg.RequestsPerMinute != 12 {
		t.Fatalf("rpm=%d", cfg.RequestsPerMinute)
	}
	if !cfg.CacheEnabled {
		t.Fatalf("cache should be enabled")
	}
	if cfg.MaxPages != 20 {
		t.Fatalf("max pages=%d", cfg.MaxPages)
	}
	if cfg.Deduplicate {
		t.Fatalf("dedup should be disabled")
	}
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv("AMZ_HTTP_MAX_RETRIES", "many")

	cfg := DefaultConfig()
	if err := FromEnv(cfg); err == nil {
		t.Fatalf("expected error for malformed AMZ_HTTP_MAX_RETRIES")
	}
}

func TestFromEnvLeavesUnsetAlone(t *testing.T) {
	cfg := DefaultConfig()
	want := *cfg
	if err := FromEnv(cfg); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if *cfg != want {
		t.Fatalf("config changed without environment overrides")
	}
}
