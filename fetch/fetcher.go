// Package fetch implements the rate-limited, retrying page fetch layer.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rnav/pricefetch/config"
)

// Result holds the raw content of one successfully fetched page.
type Result struct {
	URL        string
	StatusCode int
	HTML       string
	FromCache  bool
	FetchedAt  time.Time
}

// Fetcher issues single-page GET requests with a per-attempt timeout,
// retry with exponential backoff, and a shared rate limiter applied
// before every attempt, retries included.
type Fetcher struct {
	cfg     *config.Config
	limiter *Limiter
	metrics *Metrics
	cache   *expirable.LRU[string, string]

	transport http.RoundTripper
}

// NewFetcher builds a fetcher from cfg sharing the given limiter.
func NewFetcher(cfg *config.Config, limiter *Limiter, metrics *Metrics) *Fetcher {
	f := &Fetcher{
		cfg:     cfg,
		limiter: limiter,
		metrics: metrics,
	}
	if cfg.CacheEnabled {
		f.cache = expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return f
}

// WithTransport swaps the HTTP transport used by every attempt. Tests
// use it to plug in an httpmock transport.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
}

// Fetch retrieves one page. On success it returns the page content and
// status; on failure it returns a *FetchError carrying the last status
// and underlying error, unless the surrounding context was cancelled,
// in which case the context error is returned and the attempt abandoned.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	if f.cache != nil {
		if html, ok := f.cache.Get(pageURL); ok {
			f.metrics.IncCacheHit()
			return &Result{
				URL:        pageURL,
				StatusCode: http.StatusOK,
				HTML:       html,
				FromCache:  true,
				FetchedAt:  time.Now(),
			}, nil
		}
	}

	var lastErr error
	var lastStatus int
	attempts := 0

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		attempts++
		start := time.Now()
		res, err := f.attempt(ctx, pageURL)
		f.metrics.ObserveDuration(time.Since(start))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err == nil {
			f.metrics.IncRequest("success")
			if f.cache != nil {
				f.cache.Add(pageURL, res.HTML)
			}
			return res, nil
		}

		f.metrics.IncRequest("error")
		f.metrics.IncError(errorTypeLabel(err))
		lastErr = err
		if res != nil {
			lastStatus = res.StatusCode
		}
		slog.Warn("fetch attempt failed",
			slog.String("url", pageURL),
			slog.Int("attempt", attempts),
			slog.Int("status", lastStatus),
			slog.Any("error", err),
		)

		if !retryable(err) || attempt == f.cfg.MaxRetries {
			break
		}

		f.metrics.IncRetries()
		timer := time.NewTimer(f.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, &FetchError{
		URL:        pageURL,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        lastErr,
	}
}

// attempt issues exactly one HTTP request through a fresh collector, so
// a retry is never rejected by colly's visited-URL bookkeeping.
func (f *Fetcher) attempt(ctx context.Context, pageURL string) (*Result, error) {
	c := colly.NewCollector(colly.UserAgent(f.cfg.UserAgent))
	c.IgnoreRobotsTxt = !f.cfg.RespectRobotsTxt
	c.SetRequestTimeout(f.cfg.Timeout)
	if f.transport != nil {
		c.WithTransport(f.transport)
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	})

	res := &Result{URL: pageURL}
	var failure error
	c.OnResponse(func(r *colly.Response) {
		res.StatusCode = r.StatusCode
		res.HTML = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.StatusCode = r.StatusCode
		}
		failure = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(pageURL)
	}()

	var visitErr error
	select {
	case <-ctx.Done():
		// The in-flight request is abandoned; its result is discarded.
		return res, ctx.Err()
	case visitErr = <-done:
	}

	if statusErr := classifyStatus(res.StatusCode); statusErr != nil {
		return res, statusErr
	}
	if failure != nil {
		return res, classifyNetErr(failure)
	}
	if visitErr != nil {
		return res, classifyNetErr(visitErr)
	}

	res.FetchedAt = time.Now()
	return res, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<attempt)
	delay += time.Duration(rand.Int63n(int64(base)))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func classifyNetErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	return err
}
