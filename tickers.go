package edgo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edgolib/edgo/internal/singleflight"
	"github.com/edgolib/edgo/store"
)

// DefaultTickerURL is the bulk dataset mapping every registered ticker to
// its CIK and company title.
const DefaultTickerURL = "https://www.sec.gov/files/company_tickers.json"

// tickerDatasetKey coalesces concurrent dataset refreshes.
const tickerDatasetKey = "company_tickers"

// Refresh outcomes, also used as metric labels.
const (
	refreshSourceStore       = "store"
	refreshSourceFetched     = "fetched"
	refreshSourceNotModified = "not_modified"
	refreshSourceError       = "error"
)

// TickerEntry is one resolved mapping: a ticker symbol, its canonical
// zero-padded CIK, and the company title when the source provides one.
type TickerEntry struct {
	Ticker string
	CIK    string
	Title  string
}

// TickerCacheConfig configures a TickerCache. The zero value is usable:
// default URL, 16384 entry capacity, 24 hour TTL, no durable store.
type TickerCacheConfig struct {
	// URL overrides the bulk dataset location, mainly for tests.
	URL string

	// Capacity bounds the in-memory layer; TTL expires its entries.
	Capacity int
	TTL      time.Duration

	// Store, when set, persists the dataset across restarts and carries the
	// ETag that lets refreshes skip unchanged downloads.
	Store *store.Store

	Logger  *zap.Logger
	Metrics *MetricsCollector
}

// TickerCache resolves ticker symbols to canonical CIKs. Lookups hit a
// bounded in-memory cache; misses trigger at most one in-flight bulk fetch
// of the source dataset, which populates every entry at once. Construct one
// per application and share it; there is no hidden global state.
type TickerCache struct {
	client  *Client
	url     string
	mem     *lookupCache
	durable *store.Store
	flight  *singleflight.Group
	ttl     time.Duration
	logger  *zap.Logger
	metrics *MetricsCollector

	// lastSource tracks where the most recent population came from, so a
	// miss against store-loaded data can escalate to a network refresh.
	lastSource atomic.Value

	// lastRefresh is the unix-nano time of the last successful population.
	// While the dataset is fresh, a miss is an authoritative absence and
	// must not trigger another download.
	lastRefresh atomic.Int64

	// index holds the full ticker → CIK key set of the last population.
	// The memory layer is capacity-bounded and may truncate or evict
	// entries; only the index decides presence, so capacity pressure never
	// turns into a false not-found.
	index atomic.Value // map[string]string
}

// NewTickerCache creates a ticker resolver on top of client.
func NewTickerCache(client *Client, cfg TickerCacheConfig) *TickerCache {
	url := cfg.URL
	if url == "" {
		url = DefaultTickerURL
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TickerCache{
		client:  client,
		url:     url,
		mem:     newLookupCache(cfg.Capacity, ttl),
		durable: cfg.Store,
		flight:  singleflight.New(),
		ttl:     ttl,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Resolve returns the entry for a ticker symbol, case-insensitively.
// A symbol absent from the source dataset yields ErrNotFound.
func (tc *TickerCache) Resolve(ctx context.Context, ticker string) (TickerEntry, error) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	if key == "" {
		return TickerEntry{}, validationError("ticker must not be empty", nil)
	}

	if entry, ok := tc.mem.Get(key); ok {
		tc.metrics.RecordCacheHit("tickers")
		return entry, nil
	}
	tc.metrics.RecordCacheMiss("tickers")

	if err := tc.ensure(ctx, false); err != nil {
		return TickerEntry{}, err
	}
	if entry, ok := tc.lookup(ctx, key); ok {
		return entry, nil
	}

	// The durable copy may predate a newly listed ticker; try the network
	// once before declaring absence.
	if source, _ := tc.lastSource.Load().(string); source == refreshSourceStore {
		if err := tc.ensure(ctx, true); err != nil {
			return TickerEntry{}, err
		}
		if entry, ok := tc.lookup(ctx, key); ok {
			return entry, nil
		}
	}

	return TickerEntry{}, &ClientError{
		Kind:    ErrorKindNotFound,
		Message: fmt.Sprintf("ticker %q not found", key),
	}
}

// ResolveCIK is Resolve reduced to the canonical identifier.
func (tc *TickerCache) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	entry, err := tc.Resolve(ctx, ticker)
	if err != nil {
		return "", err
	}
	return entry.CIK, nil
}

// ResolveMany resolves a batch best-effort: tickers missing from the source
// are silently omitted from the result rather than failing the batch. The
// returned error is non-nil only when the dataset itself could not be
// obtained.
func (tc *TickerCache) ResolveMany(ctx context.Context, tickers []string) (map[string]TickerEntry, error) {
	result := make(map[string]TickerEntry, len(tickers))
	var misses []string

	for _, t := range tickers {
		key := strings.ToUpper(strings.TrimSpace(t))
		if key == "" {
			continue
		}
		if entry, ok := tc.mem.Get(key); ok {
			tc.metrics.RecordCacheHit("tickers")
			result[key] = entry
			continue
		}
		tc.metrics.RecordCacheMiss("tickers")
		misses = append(misses, key)
	}

	if len(misses) == 0 {
		return result, nil
	}

	if err := tc.ensure(ctx, false); err != nil {
		if len(result) == 0 {
			return nil, err
		}
		return result, err
	}
	var unresolved []string
	for _, key := range misses {
		if entry, ok := tc.lookup(ctx, key); ok {
			result[key] = entry
		} else {
			unresolved = append(unresolved, key)
		}
	}

	// Same escalation rule as Resolve: store-loaded data may predate newly
	// listed tickers, so unresolved symbols get one network refresh.
	if source, _ := tc.lastSource.Load().(string); len(unresolved) > 0 && source == refreshSourceStore {
		if err := tc.ensure(ctx, true); err != nil {
			return result, err
		}
		for _, key := range unresolved {
			if entry, ok := tc.lookup(ctx, key); ok {
				result[key] = entry
			}
		}
	}
	return result, nil
}

// lookup consults the memory layer, then the authoritative index for entries
// the bounded layer truncated or evicted. Index hits are promoted back into
// memory; the durable store supplies the company title when available.
func (tc *TickerCache) lookup(ctx context.Context, key string) (TickerEntry, bool) {
	if entry, ok := tc.mem.Get(key); ok {
		return entry, true
	}

	idx, _ := tc.index.Load().(map[string]string)
	cik, ok := idx[key]
	if !ok {
		return TickerEntry{}, false
	}

	entry := TickerEntry{Ticker: key, CIK: cik}
	if tc.durable != nil {
		if c, found, err := tc.durable.Lookup(ctx, key); err == nil && found {
			entry = TickerEntry{Ticker: c.Ticker, CIK: c.CIK, Title: c.Title}
		}
	}
	tc.mem.Set(key, entry)
	return entry, true
}

// Refresh forces a re-fetch of the backing dataset and repopulates both
// cache layers.
func (tc *TickerCache) Refresh(ctx context.Context) error {
	return tc.ensure(ctx, true)
}

// Size reports the number of entries in the in-memory layer.
func (tc *TickerCache) Size() int {
	return tc.mem.Len()
}

// ensure populates the cache, coalescing concurrent callers into a single
// refresh of the shared dataset.
func (tc *TickerCache) ensure(ctx context.Context, force bool) error {
	_, err := tc.flight.Do(tickerDatasetKey, func() (any, error) {
		return nil, tc.refresh(ctx, force)
	})
	return err
}

// refresh obtains the dataset and repopulates the in-memory layer. Order of
// preference: durable store on cold start, then a conditional network fetch
// that the persisted ETag can turn into a no-op download.
func (tc *TickerCache) refresh(ctx context.Context, force bool) error {
	if !force {
		if last := tc.lastRefresh.Load(); last > 0 && time.Since(time.Unix(0, last)) < tc.ttl {
			return nil
		}
	}

	if !force && tc.durable != nil && tc.mem.Len() == 0 {
		companies, err := tc.durable.All(ctx)
		if err != nil {
			return fmt.Errorf("loading durable ticker store: %w", err)
		}
		if len(companies) > 0 {
			tc.populateFromStore(companies)
			tc.lastSource.Store(refreshSourceStore)
			tc.metrics.RecordRefresh(refreshSourceStore)
			if tc.logger != nil {
				tc.logger.Debug("ticker cache populated from durable store",
					zap.Int("entries", len(companies)))
			}
			return nil
		}
	}

	etag := ""
	if tc.durable != nil {
		stored, err := tc.durable.ETag(ctx)
		if err != nil && tc.logger != nil {
			tc.logger.Warn("reading stored etag failed", zap.Error(err))
		}
		etag = stored
	}

	res, err := tc.client.fetch(ctx, tc.url, etag)
	if err != nil {
		tc.metrics.RecordRefresh(refreshSourceError)
		return err
	}

	if res.notModified {
		companies, err := tc.durable.All(ctx)
		if err != nil {
			return fmt.Errorf("loading durable ticker store: %w", err)
		}
		if len(companies) > 0 {
			tc.populateFromStore(companies)
			tc.lastSource.Store(refreshSourceNotModified)
			tc.metrics.RecordRefresh(refreshSourceNotModified)
			return nil
		}
		// 304 against an empty store is inconsistent; fetch unconditionally.
		res, err = tc.client.fetch(ctx, tc.url, "")
		if err != nil {
			tc.metrics.RecordRefresh(refreshSourceError)
			return err
		}
	}

	entries, err := parseTickerDataset(res.body)
	if err != nil {
		tc.metrics.RecordRefresh(refreshSourceError)
		return err
	}

	tc.populate(entries)
	tc.lastSource.Store(refreshSourceFetched)
	tc.metrics.RecordRefresh(refreshSourceFetched)

	if tc.durable != nil {
		companies := make([]store.Company, 0, len(entries))
		for _, e := range entries {
			companies = append(companies, store.Company{CIK: e.CIK, Ticker: e.Ticker, Title: e.Title})
		}
		if err := tc.durable.ReplaceAll(ctx, companies, res.header.Get("ETag")); err != nil {
			// Resolution proceeds from memory; the store catches up on the
			// next refresh.
			if tc.logger != nil {
				tc.logger.Warn("persisting ticker dataset failed", zap.Error(err))
			}
		}
	}

	if tc.logger != nil {
		tc.logger.Debug("ticker cache refreshed from network",
			zap.Int("entries", len(entries)))
	}
	return nil
}

func (tc *TickerCache) populateFromStore(companies []store.Company) {
	entries := make(map[string]TickerEntry, len(companies))
	for _, c := range companies {
		entries[c.Ticker] = TickerEntry{Ticker: c.Ticker, CIK: c.CIK, Title: c.Title}
	}
	tc.populate(entries)
}

// populate installs a freshly obtained dataset: the bounded memory layer, the
// authoritative key index, and the freshness stamp move together.
func (tc *TickerCache) populate(entries map[string]TickerEntry) {
	index := make(map[string]string, len(entries))
	for ticker, e := range entries {
		index[ticker] = e.CIK
	}
	tc.mem.ReplaceAll(entries)
	tc.index.Store(index)
	tc.lastRefresh.Store(time.Now().UnixNano())
	tc.metrics.RecordCacheSize("tickers", tc.mem.Len())
}

// parseTickerDataset decodes the company_tickers.json structure:
// {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func parseTickerDataset(body []byte) (map[string]TickerEntry, error) {
	var raw map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
		Title  string      `json:"title"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, decodeError("malformed ticker dataset", err)
	}

	entries := make(map[string]TickerEntry, len(raw))
	for _, record := range raw {
		ticker := strings.ToUpper(strings.TrimSpace(record.Ticker))
		cik := NormalizeCIK(record.CIK.String())
		if ticker == "" || cik == "0000000000" {
			continue
		}
		entries[ticker] = TickerEntry{Ticker: ticker, CIK: cik, Title: record.Title}
	}
	return entries, nil
}
