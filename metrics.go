package edgo

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle,
// retries, rate limiting and ticker cache. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	rateLimiterTokens *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	refreshTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, letting tests isolate their metric state.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgo_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edgo_requests_in_flight",
				Help: "Number of requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edgo_rate_limiter_tokens",
				Help: "Current token bucket level",
			},
			[]string{"limiter"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_cache_hits_total",
				Help: "Total number of lookup cache hits",
			},
			[]string{"cache"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_cache_misses_total",
				Help: "Total number of lookup cache misses",
			},
			[]string{"cache"},
		),
		cacheSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edgo_cache_size",
				Help: "Number of entries in the lookup cache",
			},
			[]string{"cache"},
		),
		refreshTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_dataset_refresh_total",
				Help: "Ticker dataset refreshes by outcome",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgo_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind", "endpoint"},
		),
	}
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a completed request with its status and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRetry counts one retry attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordRateLimiterTokens records the current token level.
func (mc *MetricsCollector) RecordRateLimiterTokens(limiter string, tokens float64) {
	if mc == nil {
		return
	}
	mc.rateLimiterTokens.WithLabelValues(limiter).Set(tokens)
}

// RecordCacheHit counts a lookup cache hit.
func (mc *MetricsCollector) RecordCacheHit(cache string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a lookup cache miss.
func (mc *MetricsCollector) RecordCacheMiss(cache string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheSize records the number of cached entries.
func (mc *MetricsCollector) RecordCacheSize(cache string, size int) {
	if mc == nil {
		return
	}
	mc.cacheSize.WithLabelValues(cache).Set(float64(size))
}

// RecordRefresh counts a dataset refresh by outcome
// ("fetched", "not_modified", "store", "error").
func (mc *MetricsCollector) RecordRefresh(result string) {
	if mc == nil {
		return
	}
	mc.refreshTotal.WithLabelValues(result).Inc()
}

// RecordError counts an error by kind.
func (mc *MetricsCollector) RecordError(kind, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(kind, endpoint).Inc()
}
