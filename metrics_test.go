package edgo

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var mc *MetricsCollector
	mc.RecordRequestStart("GET", "x")
	mc.RecordRequestEnd("GET", "x")
	mc.RecordRequest("GET", "x", 200, time.Millisecond)
	mc.RecordRetry("GET", "x")
	mc.RecordRateLimiterTokens("default", 1)
	mc.RecordCacheHit("tickers")
	mc.RecordCacheMiss("tickers")
	mc.RecordCacheSize("tickers", 10)
	mc.RecordRefresh("fetched")
	mc.RecordError("Network", "x")
}

func TestCollectorRecordsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)

	mc.RecordRequest("GET", "data.sec.gov/x", 200, 50*time.Millisecond)
	mc.RecordRequest("GET", "data.sec.gov/x", 200, 30*time.Millisecond)
	mc.RecordRetry("GET", "data.sec.gov/x")
	mc.RecordCacheHit("tickers")
	mc.RecordCacheHit("tickers")
	mc.RecordCacheMiss("tickers")
	mc.RecordRefresh("fetched")
	mc.RecordError("RateLimit", "data.sec.gov/x")

	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "200", "data.sec.gov/x")); got != 2 {
		t.Errorf("requestsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mc.retriesTotal.WithLabelValues("GET", "data.sec.gov/x")); got != 1 {
		t.Errorf("retriesTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.cacheHits.WithLabelValues("tickers")); got != 2 {
		t.Errorf("cacheHits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mc.cacheMisses.WithLabelValues("tickers")); got != 1 {
		t.Errorf("cacheMisses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.refreshTotal.WithLabelValues("fetched")); got != 1 {
		t.Errorf("refreshTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.errorsTotal.WithLabelValues("RateLimit", "data.sec.gov/x")); got != 1 {
		t.Errorf("errorsTotal = %v, want 1", got)
	}
}

func TestCollectorGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)

	mc.RecordRequestStart("GET", "x")
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("GET", "x")); got != 1 {
		t.Errorf("requestsInFlight = %v, want 1", got)
	}
	mc.RecordRequestEnd("GET", "x")
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("GET", "x")); got != 0 {
		t.Errorf("requestsInFlight = %v, want 0", got)
	}

	mc.RecordRateLimiterTokens("default", 7.5)
	if got := testutil.ToFloat64(mc.rateLimiterTokens.WithLabelValues("default")); got != 7.5 {
		t.Errorf("rateLimiterTokens = %v, want 7.5", got)
	}

	mc.RecordCacheSize("tickers", 42)
	if got := testutil.ToFloat64(mc.cacheSize.WithLabelValues("tickers")); got != 42 {
		t.Errorf("cacheSize = %v, want 42", got)
	}
}
