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

package entity

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/relaycache/relaycache/pkg/cache/entity/options"
	"github.com/relaycache/relaycache/pkg/collections"
)

func newTestCache(t *testing.T, maxSize, backoff int) *Cache {
	t.Helper()
	o := options.New()
	o.Name = "test"
	o.MaxSizeEntries = maxSize
	o.EvictionBackoffEntries = backoff
	o.SweepIntervalSecs = 0
	o.SweepInterval = 0
	c := New("test", o)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFetchReadThrough(t *testing.T) {
	c := newTestCache(t, 100, 10)
	var loads int
	loader := func(key string) (any, error) {
		loads++
		return "value-" + key, nil
	}

	v, hit, err := c.Fetch("a", loader, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if hit {
		t.Errorf("expected miss for key %s", "a")
	}
	if v != "value-a" {
		t.Errorf("expected %s got %s", "value-a", v)
	}

	v, hit, err = c.Fetch("a", loader, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if !hit {
		t.Errorf("expected hit for key %s", "a")
	}
	if v != "value-a" {
		t.Errorf("expected %s got %s", "value-a", v)
	}
	if loads != 1 {
		t.Errorf("expected 1 loader call, got %d", loads)
	}
}

func TestFetchNilLoader(t *testing.T) {
	c := newTestCache(t, 100, 10)
	_, _, err := c.Fetch("missing", nil, time.Minute)
	if !errors.Is(err, ErrNilLoader) {
		t.Errorf("expected error %s got %v", ErrNilLoader, err)
	}
}

func TestFetchExpiry(t *testing.T) {
	c := newTestCache(t, 100, 10)
	gen := 0
	loader := func(key string) (any, error) {
		gen++
		return gen, nil
	}

	v, _, _ := c.Fetch("a", loader, 10*time.Millisecond)
	if v != 1 {
		t.Errorf("expected generation 1 got %v", v)
	}

	time.Sleep(30 * time.Millisecond)

	// deadline has passed, so the loader must run again
	v, hit, err := c.Fetch("a", loader, 10*time.Millisecond)
	if err != nil {
		t.Error(err)
	}
	if hit {
		t.Errorf("expected miss for expired key %s", "a")
	}
	if v != 2 {
		t.Errorf("expected generation 2 got %v", v)
	}
}

func TestFetchLoaderFailureLeavesOldValue(t *testing.T) {
	c := newTestCache(t, 100, 10)
	expected := errors.New("backing store unavailable")

	c.Put("a", "stale", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, _, err := c.Fetch("a", func(string) (any, error) {
		return nil, expected
	}, time.Minute)
	if !errors.Is(err, expected) {
		t.Errorf("expected error %s got %v", expected, err)
	}

	// a later successful load must still work and be cached
	v, hit, err := c.Fetch("a", func(string) (any, error) {
		return "fresh", nil
	}, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if hit {
		t.Errorf("expected miss for key %s", "a")
	}
	if v != "fresh" {
		t.Errorf("expected %s got %s", "fresh", v)
	}
}

func TestPutWriteThrough(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("a", 1, time.Minute)
	c.Put("a", 2, time.Minute)

	v, hit, err := c.Fetch("a", nil, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if !hit {
		t.Errorf("expected hit for key %s", "a")
	}
	if v != 2 {
		t.Errorf("expected latest write 2 got %v", v)
	}

	if s := c.Stats(); s.DirtyEntries != 1 {
		t.Errorf("expected 1 dirty entry, got %d", s.DirtyEntries)
	}
}

func TestLRUEviction(t *testing.T) {
	c := newTestCache(t, 3, 1)

	c.Put("a", 1, time.Minute)
	time.Sleep(5 * time.Millisecond)
	c.Put("b", 2, time.Minute)
	time.Sleep(5 * time.Millisecond)
	c.Put("c", 3, time.Minute)
	time.Sleep(5 * time.Millisecond)

	// accessing a makes b the least-recently-used entry
	if _, hit, _ := c.Fetch("a", nil, 0); !hit {
		t.Errorf("expected hit for key %s", "a")
	}
	time.Sleep(5 * time.Millisecond)

	c.Put("d", 4, time.Minute)

	// bound 3 with backoff 1 drives the cache to 2 entries: b and c go
	if c.Len() != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", c.Len())
	}
	for _, key := range []string{"b", "c"} {
		if _, hit, _ := c.Fetch(key, nil, 0); hit {
			t.Errorf("expected key %s to be evicted", key)
		}
	}
	for _, key := range []string{"a", "d"} {
		if _, hit, _ := c.Fetch(key, nil, 0); !hit {
			t.Errorf("expected key %s to survive eviction", key)
		}
	}

	if s := c.Stats(); s.Evictions != 2 {
		t.Errorf("expected 2 evictions, got %d", s.Evictions)
	}
}

func TestFetchBatch(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("a", "cached-a", time.Minute)

	var batchCalls int
	loader := func(keys []string) (map[string]any, error) {
		batchCalls++
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			if k == "absent" {
				continue
			}
			out[k] = "loaded-" + k
		}
		return out, nil
	}

	// duplicate input keys are fetched once
	out, err := c.FetchBatch([]string{"a", "b", "c", "b", "absent"}, loader)
	if err != nil {
		t.Error(err)
	}
	if batchCalls != 1 {
		t.Errorf("expected 1 batch loader call, got %d", batchCalls)
	}
	if len(out) != 3 {
		t.Errorf("expected 3 results, got %d", len(out))
	}
	if out["a"] != "cached-a" {
		t.Errorf("expected cached value for key a, got %v", out["a"])
	}
	if out["b"] != "loaded-b" || out["c"] != "loaded-c" {
		t.Errorf("unexpected loaded values: %v", out)
	}
	if _, ok := out["absent"]; ok {
		t.Error("expected absent key to be omitted from results")
	}

	// the loaded keys are now cached
	out, err = c.FetchBatch([]string{"b", "c"}, loader)
	if err != nil {
		t.Error(err)
	}
	if batchCalls != 1 {
		t.Errorf("expected no further loader calls, got %d", batchCalls)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 results, got %d", len(out))
	}
}

func TestFetchBatchDuplicateKeyStats(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("a", "cached-a", time.Minute)

	var loaderKeys []string
	loader := func(keys []string) (map[string]any, error) {
		loaderKeys = keys
		return map[string]any{"b": "loaded-b"}, nil
	}

	// each distinct key counts once, however often it repeats
	if _, err := c.FetchBatch([]string{"a", "b", "b", "a", "absent"}, loader); err != nil {
		t.Error(err)
	}
	if len(loaderKeys) != 2 {
		t.Errorf("expected 2 distinct missing keys, got %v", loaderKeys)
	}

	s := c.Stats()
	if s.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", s.Requests)
	}
	if s.Hits != 1 || s.Misses != 2 {
		t.Errorf("expected 1 hit and 2 misses, got %d and %d", s.Hits, s.Misses)
	}
}

func TestFetchBatchLoaderError(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("a", 1, time.Minute)
	expected := errors.New("batch failed")

	out, err := c.FetchBatch([]string{"a", "b"}, func([]string) (map[string]any, error) {
		return nil, expected
	})
	if !errors.Is(err, expected) {
		t.Errorf("expected error %s got %v", expected, err)
	}
	// cached portion is still returned
	if out["a"] != 1 {
		t.Errorf("expected cached partial result, got %v", out)
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("user:1", 1, time.Minute)
	c.Put("user:2", 2, time.Minute)
	c.Put("chat:1", 3, time.Minute)

	if n := c.Invalidate("user:"); n != 2 {
		t.Errorf("expected 2 invalidated, got %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry remaining, got %d", c.Len())
	}
	if n := c.Invalidate("nomatch:"); n != 0 {
		t.Errorf("expected 0 invalidated, got %d", n)
	}
}

func TestSweepExpired(t *testing.T) {
	c := newTestCache(t, 100, 10)
	c.Put("short", 1, 10*time.Millisecond)
	c.Put("long", 2, time.Minute)
	time.Sleep(30 * time.Millisecond)

	if n := c.SweepExpired(); n != 1 {
		t.Errorf("expected 1 swept, got %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry remaining, got %d", c.Len())
	}
}

func TestShrink(t *testing.T) {
	c := newTestCache(t, 100, 10)
	for i := 0; i < 5; i++ {
		c.Put("key"+strconv.Itoa(i), i, time.Minute)
	}

	// within bound and unexpired, so a bound shrink removes nothing
	if n := c.Shrink(collections.ShrinkCriteria{Mode: collections.ShrinkToBound}); n != 0 {
		t.Errorf("expected 0 removed, got %d", n)
	}
	if c.Len() != 5 {
		t.Errorf("expected 5 entries, got %d", c.Len())
	}

	if n := c.Shrink(collections.ShrinkCriteria{
		Mode: collections.ShrinkByMaxIdle, MaxIdle: time.Hour}); n != 0 {
		t.Errorf("expected 0 removed by idle age, got %d", n)
	}

	if n := c.Shrink(collections.ShrinkCriteria{Mode: collections.ShrinkClear}); n != 5 {
		t.Errorf("expected 5 removed by clear, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCollectionContract(t *testing.T) {
	c := newTestCache(t, 100, 10)
	if c.Name() != "test" {
		t.Errorf("expected name %s got %s", "test", c.Name())
	}
	if c.Kind() != collections.KindCache {
		t.Errorf("expected kind %d got %d", collections.KindCache, c.Kind())
	}
	c.Put("a", 1, time.Minute)
	entries := c.Entries()
	if len(entries) != 1 || entries[0].Key != "a" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t, 100, 10)
	loader := func(key string) (any, error) { return key, nil }

	c.Fetch("a", loader, time.Minute) // miss
	c.Fetch("a", loader, time.Minute) // hit
	c.Fetch("a", loader, time.Minute) // hit
	c.Fetch("b", loader, time.Minute) // miss

	s := c.Stats()
	if s.Requests != 4 {
		t.Errorf("expected 4 requests, got %d", s.Requests)
	}
	if s.Hits != 2 || s.Misses != 2 {
		t.Errorf("expected 2 hits and 2 misses, got %d and %d", s.Hits, s.Misses)
	}
	if s.HitRate != 50 || s.MissRate != 50 {
		t.Errorf("expected 50/50 rates, got %f and %f", s.HitRate, s.MissRate)
	}
	if s.QueriesSaved != 2 {
		t.Errorf("expected 2 queries saved, got %d", s.QueriesSaved)
	}
	if s.CacheSize != 2 || s.MaxCacheSize != 100 {
		t.Errorf("unexpected sizes: %d of %d", s.CacheSize, s.MaxCacheSize)
	}
}

func TestSingleflightFetch(t *testing.T) {
	o := options.New()
	o.Name = "sf"
	o.SweepIntervalSecs = 0
	o.SweepInterval = 0
	o.Singleflight = true
	c := New("sf", o)
	defer c.Close()

	v, hit, err := c.Fetch("a", func(key string) (any, error) {
		return "value-" + key, nil
	}, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if hit {
		t.Errorf("expected miss for key %s", "a")
	}
	if v != "value-a" {
		t.Errorf("expected %s got %s", "value-a", v)
	}
}
