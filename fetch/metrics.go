package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch layer and the
// pipeline stages built on top of it.
type Metrics struct {
	Registry               *prometheus.Registry
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	RetriesTotal           prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
	CacheHitsTotal         prometheus.Counter
	PagesFetchedTotal      prometheus.Counter
	ProductsExtractedTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefetch_requests_total",
			Help: "Total HTTP request attempts issued by the fetcher.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricefetch_request_duration_seconds",
			Help:    "HTTP request latency per attempt.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricefetch_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricefetch_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricefetch_cache_hits_total",
			Help: "Total number of responses served from the cache.",
		},
	)
	pagesFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricefetch_pages_fetched_total",
			Help: "Total number of result pages fetched and parsed.",
		},
	)
	productsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricefetch_products_extracted_total",
			Help: "Total number of candidate products extracted.",
		},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, cacheHits, pagesFetched, productsExtracted)

	return &Metrics{
		Registry:               registry,
		RequestsTotal:          requests,
		RequestDuration:        requestDuration,
		RetriesTotal:           retries,
		ErrorsTotal:            errorsTotal,
		CacheHitsTotal:         cacheHits,
		PagesFetchedTotal:      pagesFetched,
		ProductsExtractedTotal: productsExtracted,
	}
}

// IncRequest increments the request attempts counter.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP attempt duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncPages increments the fetched pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// AddProducts adds to the extracted products counter.
func (m *Metrics) AddProducts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProductsExtractedTotal.Add(float64(n))
}
