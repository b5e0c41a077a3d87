package edgo

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const defaultShardCount = 16

// lookupCache is the in-memory layer of the ticker cache: a sharded map
// bounded by capacity and expiring entries by TTL. Eviction is approximate
// LRU: when a shard is full the entry with the oldest access time in that
// shard is dropped. The cache is a pure performance layer; dropping it
// entirely never loses correctness.
type lookupCache struct {
	shards   []*lookupShard
	shardCap int
	ttl      time.Duration
}

type lookupShard struct {
	mu    sync.RWMutex
	store map[string]*lookupEntry
}

type lookupEntry struct {
	value      TickerEntry
	expiresAt  int64
	lastAccess int64
}

// newLookupCache builds a cache holding at most capacity entries with the
// given TTL. Zero TTL means entries never expire by time.
func newLookupCache(capacity int, ttl time.Duration) *lookupCache {
	if capacity <= 0 {
		capacity = 16384
	}
	numShards := defaultShardCount
	if capacity < numShards {
		numShards = 1
	}
	shards := make([]*lookupShard, numShards)
	for i := range shards {
		shards[i] = &lookupShard{store: make(map[string]*lookupEntry)}
	}
	return &lookupCache{
		shards:   shards,
		shardCap: capacity / numShards,
		ttl:      ttl,
	}
}

func (c *lookupCache) getShard(key string) *lookupShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the cached entry for key if present and unexpired. Expired
// entries are deleted on read rather than served stale.
func (c *lookupCache) Get(key string) (TickerEntry, bool) {
	shard := c.getShard(key)
	now := time.Now().UnixNano()

	shard.mu.RLock()
	entry, ok := shard.store[key]
	if !ok {
		shard.mu.RUnlock()
		return TickerEntry{}, false
	}
	if entry.expiresAt > 0 && now > entry.expiresAt {
		shard.mu.RUnlock()
		shard.mu.Lock()
		if e, still := shard.store[key]; still && e == entry {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		return TickerEntry{}, false
	}
	atomic.StoreInt64(&entry.lastAccess, now)
	value := entry.value
	shard.mu.RUnlock()
	return value, true
}

// Set stores an entry, evicting the coldest one in the shard when full.
func (c *lookupCache) Set(key string, value TickerEntry) {
	shard := c.getShard(key)
	now := time.Now()

	entry := &lookupEntry{
		value:      value,
		lastAccess: now.UnixNano(),
	}
	if c.ttl > 0 {
		entry.expiresAt = now.Add(c.ttl).UnixNano()
	}

	shard.mu.Lock()
	if _, exists := shard.store[key]; !exists && len(shard.store) >= c.shardCap {
		shard.evictOldestLocked(now.UnixNano())
	}
	shard.store[key] = entry
	shard.mu.Unlock()
}

// evictOldestLocked drops expired entries first, then the least recently
// accessed entry. Caller must hold the shard write lock.
func (s *lookupShard) evictOldestLocked(now int64) {
	var oldestKey string
	var oldestAccess int64
	for k, e := range s.store {
		if e.expiresAt > 0 && now > e.expiresAt {
			delete(s.store, k)
			return
		}
		access := atomic.LoadInt64(&e.lastAccess)
		if oldestKey == "" || access < oldestAccess {
			oldestKey = k
			oldestAccess = access
		}
	}
	if oldestKey != "" {
		delete(s.store, oldestKey)
	}
}

// ReplaceAll swaps the whole cache content for the given dataset, the bulk
// population path after a refresh. Capacity still applies per shard.
func (c *lookupCache) ReplaceAll(entries map[string]TickerEntry) {
	now := time.Now()
	var expires int64
	if c.ttl > 0 {
		expires = now.Add(c.ttl).UnixNano()
	}

	fresh := make([]map[string]*lookupEntry, len(c.shards))
	for i := range fresh {
		fresh[i] = make(map[string]*lookupEntry)
	}
	for key, value := range entries {
		h := fnv.New32a()
		_, _ = h.Write([]byte(key))
		idx := h.Sum32() % uint32(len(c.shards))
		if len(fresh[idx]) >= c.shardCap {
			continue
		}
		fresh[idx][key] = &lookupEntry{
			value:      value,
			expiresAt:  expires,
			lastAccess: now.UnixNano(),
		}
	}
	for i, shard := range c.shards {
		shard.mu.Lock()
		shard.store = fresh[i]
		shard.mu.Unlock()
	}
}

// Len reports the total number of cached entries.
func (c *lookupCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}
