/*
 * Copyright 2024 The RelayCache Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package entity implements the keyed, TTL-boxed, LRU-bounded
// read-through cache that fronts the backing record store. Reads
// fall through to a caller-supplied loader on miss; writes are
// write-through and assume the caller has already written the store.
package entity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relaycache/relaycache/pkg/cache/entity/options"
	"github.com/relaycache/relaycache/pkg/cache/metrics"
	"github.com/relaycache/relaycache/pkg/collections"
	"github.com/relaycache/relaycache/pkg/observability/logging"
	"github.com/relaycache/relaycache/pkg/observability/logging/logger"
	gm "github.com/relaycache/relaycache/pkg/observability/metrics"
)

// Cache implements the collections.Collection interface
var _ collections.Collection = &Cache{}

// ErrNilLoader is returned when a Fetch or FetchBatch miss has no loader to fall through to
var ErrNilLoader = errors.New("nil loader")

// LoaderFunc reads one record from the backing store
type LoaderFunc func(key string) (any, error)

// BatchLoaderFunc reads multiple records from the backing store in one call
type BatchLoaderFunc func(keys []string) (map[string]any, error)

// Cache is a keyed store of time-boxed records with LRU eviction,
// batch-fetch coalescing, and write-through update semantics
type Cache struct {
	name string
	opts *options.Options

	mtx     sync.Mutex
	entries map[string]*Entry
	dirty   map[string]struct{}

	sf *singleflight.Group

	requests     atomic.Int64
	hits         atomic.Int64
	misses       atomic.Int64
	evictions    atomic.Int64
	queriesSaved atomic.Int64

	cancel        context.CancelFunc
	sweeperExited atomic.Bool
}

// New returns a new entity Cache and starts its expired-entry sweeper
func New(name string, o *options.Options) *Cache {
	if o == nil {
		o = options.New()
		o.Name = name
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		name:    name,
		opts:    o,
		entries: make(map[string]*Entry),
		dirty:   make(map[string]struct{}),
		cancel:  cancel,
	}
	if o.Singleflight {
		c.sf = &singleflight.Group{}
	}
	if o.SweepInterval > 0 {
		go c.sweeper(ctx)
	} else {
		logger.Warn("cache sweeper was not started",
			logging.Pairs{"cacheName": name, "sweepInterval": o.SweepInterval})
	}
	gm.CacheMaxObjects.WithLabelValues(name).Set(float64(o.MaxSizeEntries))
	return c
}

// Fetch returns the cached value for key when present and unexpired,
// marking it accessed; otherwise it invokes the loader, stores the
// result with the provided ttl, and returns it. The second return
// value indicates a cache hit. A ttl <= 0 applies the configured
// default. Loader failures are never cached and leave any
// previously-cached value for the key untouched.
func (c *Cache) Fetch(key string, loader LoaderFunc, ttl time.Duration) (any, bool, error) {
	c.requests.Add(1)
	if ttl <= 0 {
		ttl = c.opts.TTLDefault
	}
	now := time.Now()
	c.mtx.Lock()
	if e, ok := c.entries[key]; ok && !e.expired(now) {
		e.touch(now)
		v := e.Value
		c.mtx.Unlock()
		c.hits.Add(1)
		c.queriesSaved.Add(1)
		metrics.ObserveCacheHit(c.name)
		return v, true, nil
	}
	c.mtx.Unlock()

	c.misses.Add(1)
	metrics.ObserveCacheMiss(c.name)
	if loader == nil {
		return nil, false, ErrNilLoader
	}

	var value any
	var err error
	if c.sf != nil {
		value, err, _ = c.sf.Do(key, func() (any, error) {
			return loader(key)
		})
	} else {
		value, err = loader(key)
	}
	if err != nil {
		return nil, false, err
	}
	c.mtx.Lock()
	c.storeLocked(key, value, ttl, false)
	c.mtx.Unlock()
	return value, false, nil
}

// Put unconditionally inserts or replaces the entry for key. The
// backing store must already have been written by the caller; the
// entry is marked dirty for observability only.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.opts.TTLDefault
	}
	c.mtx.Lock()
	c.storeLocked(key, value, ttl, true)
	c.mtx.Unlock()
	metrics.ObserveCacheOperation(c.name, "set", "none")
}

// FetchBatch partitions keys into cached and missing, issues at most
// one loader call for all missing keys, merges the results into the
// cache under the default TTL, and returns the combined map. Keys the
// loader does not return are absent from the result. Duplicate input
// keys count once.
func (c *Cache) FetchBatch(keys []string, loader BatchLoaderFunc) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	missing := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	now := time.Now()

	c.mtx.Lock()
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if e, ok := c.entries[k]; ok && !e.expired(now) {
			e.touch(now)
			out[k] = e.Value
		} else {
			missing = append(missing, k)
		}
	}
	c.mtx.Unlock()

	c.requests.Add(int64(len(seen)))
	c.hits.Add(int64(len(out)))
	c.misses.Add(int64(len(missing)))
	c.queriesSaved.Add(int64(len(out)))
	metrics.ObserveQueriesSaved(c.name, float64(len(out)))

	if len(missing) == 0 {
		return out, nil
	}
	if loader == nil {
		return out, ErrNilLoader
	}

	fetched, err := loader(missing)
	if err != nil {
		return out, err
	}
	c.mtx.Lock()
	for k, v := range fetched {
		c.storeLocked(k, v, c.opts.TTLDefault, false)
		out[k] = v
	}
	c.mtx.Unlock()
	if n := len(missing) - 1; n > 0 {
		// n misses were answered by a single backing-store call
		c.queriesSaved.Add(int64(n))
		metrics.ObserveQueriesSaved(c.name, float64(n))
	}
	return out, nil
}

// Invalidate removes all entries whose key begins with prefix and
// returns the number removed. It is used whenever an external actor
// mutates data the cache cannot observe directly.
func (c *Cache) Invalidate(prefix string) int {
	c.mtx.Lock()
	var removed int
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			c.removeLocked(k)
			removed++
		}
	}
	c.mtx.Unlock()
	if removed > 0 {
		metrics.ObserveCacheDel(c.name, float64(removed))
		logger.Debug("cache entries invalidated",
			logging.Pairs{"cacheName": c.name, "prefix": prefix, "count": removed})
	}
	return removed
}

// Clear removes all entries
func (c *Cache) Clear() int {
	c.mtx.Lock()
	removed := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.dirty = make(map[string]struct{})
	c.mtx.Unlock()
	metrics.ObserveCacheSizeChange(c.name, 0)
	return removed
}

// Close stops the sweeper and releases all entries
func (c *Cache) Close() error {
	c.cancel()
	c.Clear()
	return nil
}

// storeLocked inserts or replaces an entry. The cache mutex must be held.
func (c *Cache) storeLocked(key string, value any, ttl time.Duration, markDirty bool) {
	now := time.Now()
	e := &Entry{
		Key:        key,
		Value:      value,
		CreatedAt:  now,
		LastAccess: now,
	}
	if ttl > 0 {
		e.Deadline = now.Add(ttl)
	}
	c.entries[key] = e
	if markDirty {
		c.dirty[key] = struct{}{}
	}
	c.evictLocked(c.opts.MaxSizeEntries)
	metrics.ObserveCacheSizeChange(c.name, int64(len(c.entries)))
}

// removeLocked deletes one entry. The cache mutex must be held.
func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	delete(c.dirty, key)
}

// evictLocked removes least-recently-accessed entries until the cache
// holds no more than bound entries, overshooting by the configured
// backoff so the next insert doesn't immediately re-trigger an
// eviction exercise. The cache mutex must be held.
func (c *Cache) evictLocked(bound int) int {
	if bound <= 0 || len(c.entries) <= bound {
		return 0
	}
	target := bound - c.opts.EvictionBackoffEntries
	if target < 0 {
		target = 0
	}
	byAtime := make(entriesAtime, 0, len(c.entries))
	for _, e := range c.entries {
		byAtime = append(byAtime, e)
	}
	sort.Sort(byAtime)
	var removed int
	for _, e := range byAtime {
		if len(c.entries) <= target {
			break
		}
		c.removeLocked(e.Key)
		removed++
	}
	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.ObserveCacheEvent(c.name, "eviction", "lru")
		logger.Debug("max cache size reached. evicting least-recently-accessed records",
			logging.Pairs{"cacheName": c.name, "count": removed, "maxSizeEntries": bound})
	}
	return removed
}

// SweepExpired makes one pass through the cache, removing entries past
// their deadline, and returns the number removed
func (c *Cache) SweepExpired() int {
	now := time.Now()
	c.mtx.Lock()
	var removed int
	for k, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(k)
			removed++
		}
	}
	size := len(c.entries)
	c.mtx.Unlock()
	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.ObserveCacheEvent(c.name, "eviction", "ttl")
		metrics.ObserveCacheSizeChange(c.name, int64(size))
		logger.Debug("expired cache entries removed",
			logging.Pairs{"cacheName": c.name, "count": removed})
	}
	return removed
}

// sweeper periodically removes expired entries until the cache is closed
func (c *Cache) sweeper(ctx context.Context) {
SWEEPER:
	for {
		select {
		case <-ctx.Done():
			break SWEEPER
		case <-time.After(c.opts.SweepInterval):
			c.SweepExpired()
		}
	}
	c.sweeperExited.Store(true)
}

// Stats is a read-only diagnostic snapshot of cache performance
type Stats struct {
	CacheSize    int     `json:"cache_size"`
	MaxCacheSize int     `json:"max_cache_size"`
	Requests     int64   `json:"requests"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"`
	MissRate     float64 `json:"miss_rate"`
	Evictions    int64   `json:"evictions"`
	QueriesSaved int64   `json:"queries_saved"`
	DirtyEntries int     `json:"dirty_entries"`
}

// Stats returns a point-in-time snapshot of the cache's performance counters
func (c *Cache) Stats() Stats {
	c.mtx.Lock()
	size := len(c.entries)
	dirty := len(c.dirty)
	c.mtx.Unlock()
	s := Stats{
		CacheSize:    size,
		MaxCacheSize: c.opts.MaxSizeEntries,
		Requests:     c.requests.Load(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Evictions:    c.evictions.Load(),
		QueriesSaved: c.queriesSaved.Load(),
		DirtyEntries: dirty,
	}
	if s.Requests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Requests) * 100
		s.MissRate = float64(s.Misses) / float64(s.Requests) * 100
	}
	return s
}

// Name implements the collections.Collection interface
func (c *Cache) Name() string {
	return c.name
}

// Kind implements the collections.Collection interface
func (c *Cache) Kind() collections.Kind {
	return collections.KindCache
}

// Len implements the collections.Collection interface
func (c *Cache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.entries)
}

// Entries implements the collections.Collection interface
func (c *Cache) Entries() []collections.Entry {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	out := make([]collections.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, collections.Entry{Key: e.Key, LastActivity: e.LastAccess})
	}
	return out
}

// Shrink implements the collections.Collection interface, shedding
// entries per the requested criteria and returning the number removed
func (c *Cache) Shrink(criteria collections.ShrinkCriteria) int {
	switch criteria.Mode {
	case collections.ShrinkClear:
		return c.Clear()
	case collections.ShrinkByMaxIdle:
		now := time.Now()
		c.mtx.Lock()
		var removed int
		for k, e := range c.entries {
			if now.Sub(e.LastAccess) > criteria.MaxIdle {
				c.removeLocked(k)
				removed++
			}
		}
		c.mtx.Unlock()
		if removed > 0 {
			c.evictions.Add(int64(removed))
			metrics.ObserveCacheEvent(c.name, "eviction", "idle")
		}
		return removed
	default: // ShrinkToBound
		removed := c.SweepExpired()
		c.mtx.Lock()
		removed += c.evictLocked(c.opts.MaxSizeEntries)
		c.mtx.Unlock()
		return removed
	}
}
