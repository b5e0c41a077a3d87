// Package edgo is a compliant data-access client for SEC EDGAR:
//
//   - Token bucket rate limiting (default 10 req/s, the documented SEC budget)
//   - Retries with capped exponential backoff + jitter for transient failures
//   - Request validation (HTTPS only, sec.gov host allowlist, identifying User-Agent)
//   - Streaming gzip / deflate response decompression
//   - Ticker → CIK resolution backed by a bounded in-memory cache and an
//     optional durable libsql store with ETag-aware refresh
//   - Prometheus metrics and zap structured logging
//
// Design goals:
//   - One immutable Config, validated at construction
//   - Safe concurrent use of a single *Client instance
//   - Errors carry a kind so callers can tell a 404 from a rate limit
//
// Typical usage:
//
//	client, err := edgo.New(edgo.DefaultConfig("MyApp admin@example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := client.FetchText(ctx, "https://www.sec.gov/files/company_tickers.json")
//
// Ticker resolution:
//
//	tickers := edgo.NewTickerCache(client, edgo.TickerCacheConfig{})
//	entry, err := tickers.Resolve(ctx, "AAPL") // entry.CIK == "0000320193"
//
// The SEC requires every automated request to carry a User-Agent naming the
// application and a contact email. New rejects configurations without one.
package edgo
