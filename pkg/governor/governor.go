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

// Package governor implements the memory governor: a background
// monitor that samples memory usage, keeps a rolling history for
// trend queries, and drives two cleanup tiers - routine (age-based
// expiry of idle sessions and LRU trims of oversized caches) and
// emergency (aggressive eviction across all registered collections
// when a high-water mark is crossed).
package governor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaycache/relaycache/pkg/collections"
	"github.com/relaycache/relaycache/pkg/governor/options"
	"github.com/relaycache/relaycache/pkg/observability/logging"
	"github.com/relaycache/relaycache/pkg/observability/logging/logger"
	gm "github.com/relaycache/relaycache/pkg/observability/metrics"
)

// Governor monitors memory usage and asks registered collections to
// shed load. It holds only non-owning references to collections and
// never mutates their internals directly.
type Governor struct {
	opts *options.Options

	mtx        sync.Mutex
	registered []collections.Collection
	totals     CleanupTotals

	ring *sampleRing

	// readMemory is swappable so tests can inject readings
	readMemory func() (Sample, error)

	// cleanupMtx serializes cleanup passes across tiers
	cleanupMtx sync.Mutex

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	monitorExited atomic.Bool
	cleanerExited atomic.Bool
}

// New returns a new Governor and starts its monitoring and cleanup
// loops. A loop whose interval is zero is not started.
func New(o *options.Options) *Governor {
	g := newGovernor(o)
	g.start()
	return g
}

// newGovernor constructs a Governor without starting its background
// loops, so the memory reader can be swapped before any loop reads it
func newGovernor(o *options.Options) *Governor {
	if o == nil {
		o = options.New()
	}
	return &Governor{
		opts:       o,
		ring:       newSampleRing(o.HistorySize),
		readMemory: readSystemMemory,
	}
}

func (g *Governor) start() {
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	if g.opts.SampleInterval > 0 {
		g.wg.Add(1)
		go g.monitor(ctx)
	} else {
		logger.Warn("memory monitor was not started",
			logging.Pairs{"sampleInterval": g.opts.SampleInterval})
	}
	if g.opts.CleanupInterval > 0 {
		g.wg.Add(1)
		go g.cleaner(ctx)
	} else {
		logger.Warn("cleanup loop was not started",
			logging.Pairs{"cleanupInterval": g.opts.CleanupInterval})
	}
}

// Register adds a non-owning reference to a collection. Registering
// the same collection twice has no additional effect.
func (g *Governor) Register(c collections.Collection) {
	if c == nil {
		return
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	for _, existing := range g.registered {
		if existing == c {
			return
		}
	}
	g.registered = append(g.registered, c)
	logger.Debug("collection registered",
		logging.Pairs{"collection": c.Name(), "kind": int(c.Kind())})
}

func (g *Governor) snapshotCollections() []collections.Collection {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	out := make([]collections.Collection, len(g.registered))
	copy(out, g.registered)
	return out
}

// Sample takes one memory reading, annotates it with managed-object
// counts, appends it to the rolling history, and returns it. On a
// platform sampling failure the error is returned, the previous
// sample is retained, and the history is left unchanged.
func (g *Governor) Sample() (Sample, error) {
	s, err := g.readMemory()
	if err != nil {
		gm.MemorySampleFailures.Inc()
		logger.ErrorOnce("governor.sample", "memory sampling unavailable; cleanup continues on schedule",
			logging.Pairs{"error": err})
		prev, _ := g.ring.last()
		return prev, err
	}
	var sessions, cached int
	for _, c := range g.snapshotCollections() {
		switch c.Kind() {
		case collections.KindSessionHolder:
			sessions += c.Len()
		case collections.KindCache:
			cached += c.Len()
		}
	}
	s.ActiveSessions = sessions
	s.CachedObjects = cached
	g.ring.add(s)
	gm.MemoryUsedPercent.Set(s.UsedPercent)
	gm.GovernorActiveSessions.Set(float64(sessions))
	gm.GovernorCachedObjects.Set(float64(cached))
	if s.UsedPercent > g.opts.MemoryThreshold {
		logger.Warn("high memory usage detected",
			logging.Pairs{"usedPercent": s.UsedPercent, "threshold": g.opts.MemoryThreshold})
	}
	return s, nil
}

// CleanupReport summarizes one cleanup pass
type CleanupReport struct {
	Emergency           bool          `json:"emergency"`
	SessionsRemoved     int           `json:"sessions_removed"`
	CacheEntriesEvicted int           `json:"cache_entries_evicted"`
	// ObjectsCollected is the number of garbage-collection cycles completed during the pass
	ObjectsCollected int           `json:"objects_collected"`
	MemoryFreedBytes uint64        `json:"memory_freed_bytes"`
	Duration         time.Duration `json:"duration"`
	Timestamp        time.Time     `json:"timestamp"`
}

// CleanupTotals accumulates cleanup activity across all passes
type CleanupTotals struct {
	TotalCleanups       int64     `json:"total_cleanups"`
	EmergencyCleanups   int64     `json:"emergency_cleanups"`
	SessionsRemoved     int64     `json:"sessions_removed"`
	CacheEntriesEvicted int64     `json:"cache_entries_evicted"`
	ObjectsCollected    int64     `json:"objects_collected"`
	MemoryFreedBytes    uint64    `json:"memory_freed_bytes"`
	LastCleanup         time.Time `json:"last_cleanup"`
}

// RoutineCleanup performs one routine cleanup pass: idle sessions
// older than MaxSessionAge are removed, caches over their size bound
// are LRU-trimmed, and one garbage-collection pass is run.
func (g *Governor) RoutineCleanup() CleanupReport {
	return g.cleanup(false)
}

// ForceCleanup performs an immediate routine cleanup pass outside the
// normal schedule
func (g *Governor) ForceCleanup() CleanupReport {
	return g.cleanup(false)
}

// EmergencyCleanup synchronously arrests a memory spike: cache
// collections are cleared entirely, the session idle-age tolerance
// shrinks to the emergency window, and multiple garbage-collection
// passes are run. It completes before returning.
func (g *Governor) EmergencyCleanup() CleanupReport {
	return g.cleanup(true)
}

func (g *Governor) cleanup(emergency bool) CleanupReport {
	g.cleanupMtx.Lock()
	defer g.cleanupMtx.Unlock()

	start := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heapBefore := ms.HeapAlloc
	gcBefore := ms.NumGC

	report := CleanupReport{Emergency: emergency, Timestamp: start}

	sessionCriteria := collections.ShrinkCriteria{
		Mode:    collections.ShrinkByMaxIdle,
		MaxIdle: g.opts.MaxSessionAge,
	}
	cacheCriteria := collections.ShrinkCriteria{Mode: collections.ShrinkToBound}
	if emergency {
		sessionCriteria.MaxIdle = g.opts.EmergencySessionAge
		cacheCriteria = collections.ShrinkCriteria{Mode: collections.ShrinkClear}
	}

	for _, c := range g.snapshotCollections() {
		var criteria collections.ShrinkCriteria
		switch c.Kind() {
		case collections.KindSessionHolder:
			criteria = sessionCriteria
		case collections.KindCache:
			criteria = cacheCriteria
		default:
			continue
		}
		removed, err := shrinkCollection(c, criteria)
		if err != nil {
			// one misbehaving collection must never abort the sweep
			logger.Error("collection shrink failed; skipping",
				logging.Pairs{"collection": c.Name(), "error": err})
			continue
		}
		switch c.Kind() {
		case collections.KindSessionHolder:
			report.SessionsRemoved += removed
		case collections.KindCache:
			report.CacheEntriesEvicted += removed
		}
	}

	gcPasses := 1
	if emergency {
		gcPasses = 3
	}
	for i := 0; i < gcPasses; i++ {
		runtime.GC()
	}

	runtime.ReadMemStats(&ms)
	report.ObjectsCollected = int(ms.NumGC - gcBefore)
	if heapBefore > ms.HeapAlloc {
		report.MemoryFreedBytes = heapBefore - ms.HeapAlloc
	}
	report.Duration = time.Since(start)

	tier := "routine"
	if emergency {
		tier = "emergency"
	}
	gm.GovernorCleanups.WithLabelValues(tier).Inc()
	gm.GovernorSessionsReclaimed.Add(float64(report.SessionsRemoved))
	gm.GovernorEntriesReclaimed.Add(float64(report.CacheEntriesEvicted))

	g.mtx.Lock()
	g.totals.TotalCleanups++
	if emergency {
		g.totals.EmergencyCleanups++
	}
	g.totals.SessionsRemoved += int64(report.SessionsRemoved)
	g.totals.CacheEntriesEvicted += int64(report.CacheEntriesEvicted)
	g.totals.ObjectsCollected += int64(report.ObjectsCollected)
	g.totals.MemoryFreedBytes += report.MemoryFreedBytes
	g.totals.LastCleanup = report.Timestamp
	g.mtx.Unlock()

	if emergency || report.SessionsRemoved > 0 || report.CacheEntriesEvicted > 0 {
		logger.Info("cleanup pass completed", logging.Pairs{
			"tier":         tier,
			"sessions":     report.SessionsRemoved,
			"cacheEntries": report.CacheEntriesEvicted,
			"freedBytes":   report.MemoryFreedBytes,
			"duration":     report.Duration,
		})
	}
	return report
}

// shrinkCollection invokes a collection's Shrink, converting a panic
// in a misbehaving collection into an error
func shrinkCollection(c collections.Collection, criteria collections.ShrinkCriteria) (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &shrinkPanicError{collection: c.Name(), value: r}
		}
	}()
	removed = c.Shrink(criteria)
	return removed, nil
}

type shrinkPanicError struct {
	collection string
	value      any
}

func (e *shrinkPanicError) Error() string {
	return fmt.Sprintf("shrink panicked in collection %s: %v", e.collection, e.value)
}

// Trend computes memory usage movement over the trailing window. It
// returns ErrInsufficientSamples when fewer than two samples fall in
// the window.
func (g *Governor) Trend(window time.Duration) (TrendReport, error) {
	return computeTrend(g.ring.since(time.Now().Add(-window)), window)
}

// Stats is a read-only diagnostic snapshot of the governor
type Stats struct {
	Current                  Sample        `json:"current"`
	SampleCount              int           `json:"sample_count"`
	RegisteredSessionHolders int           `json:"registered_session_holders"`
	RegisteredCaches         int           `json:"registered_caches"`
	Totals                   CleanupTotals `json:"cleanup_totals"`
}

// Stats returns a point-in-time snapshot of governor state
func (g *Governor) Stats() Stats {
	current, _ := g.ring.last()
	s := Stats{
		Current:     current,
		SampleCount: g.ring.len(),
	}
	g.mtx.Lock()
	for _, c := range g.registered {
		switch c.Kind() {
		case collections.KindSessionHolder:
			s.RegisteredSessionHolders++
		case collections.KindCache:
			s.RegisteredCaches++
		}
	}
	s.Totals = g.totals
	g.mtx.Unlock()
	return s
}

// Shutdown cancels the background loops, waits for them to exit, and
// performs one final routine cleanup. An in-flight cleanup is allowed
// to finish.
func (g *Governor) Shutdown() {
	g.cancel()
	g.wg.Wait()
	g.RoutineCleanup()
	logger.Info("memory governor stopped", nil)
}

// monitor periodically samples memory usage and escalates to an
// emergency cleanup when the high-water mark is crossed
func (g *Governor) monitor(ctx context.Context) {
	defer g.wg.Done()
MONITOR:
	for {
		select {
		case <-ctx.Done():
			break MONITOR
		case <-time.After(g.opts.SampleInterval):
			g.recoverTick("monitor", func() {
				s, err := g.Sample()
				if err != nil {
					return
				}
				if s.UsedPercent > g.opts.EmergencyMemoryThreshold {
					logger.Warn("emergency memory cleanup triggered",
						logging.Pairs{"usedPercent": s.UsedPercent,
							"threshold": g.opts.EmergencyMemoryThreshold})
					g.EmergencyCleanup()
				}
			})
		}
	}
	g.monitorExited.Store(true)
}

// cleaner periodically performs routine cleanup passes
func (g *Governor) cleaner(ctx context.Context) {
	defer g.wg.Done()
CLEANER:
	for {
		select {
		case <-ctx.Done():
			break CLEANER
		case <-time.After(g.opts.CleanupInterval):
			g.recoverTick("cleaner", func() { g.RoutineCleanup() })
		}
	}
	g.cleanerExited.Store(true)
}

// recoverTick runs one loop iteration, recovering any panic so a
// single bad tick never stops the loop protecting the process
func (g *Governor) recoverTick(loop string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("background loop iteration panicked; loop continues",
				logging.Pairs{"loop": loop, "detail": r})
		}
	}()
	f()
}
