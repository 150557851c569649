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

// Package metrics implements prometheus metrics and exposes the metrics HTTP handler
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace   = "relaycache"
	cacheSubsystem    = "cache"
	governorSubsystem = "governor"
	buildSubsystem    = "build"
)

// BuildInfo is a Gauge representing the binary build information of the running instance
var BuildInfo *prometheus.GaugeVec

// CacheObjectOperations is a Counter of operations (in # of objects) performed on a cache
var CacheObjectOperations *prometheus.CounterVec

// CacheEvents is a Counter of events performed on a cache
var CacheEvents *prometheus.CounterVec

// CacheObjects is a Gauge representing the number of objects in a cache
var CacheObjects *prometheus.GaugeVec

// CacheMaxObjects is a Gauge for a cache's Max Object Threshold for triggering an eviction exercise
var CacheMaxObjects *prometheus.GaugeVec

// CacheQueriesSaved is a Counter of backing-store queries avoided by cache hits or batching
var CacheQueriesSaved *prometheus.CounterVec

// MemoryUsedPercent is a Gauge of the most recent sampled system memory usage percentage
var MemoryUsedPercent prometheus.Gauge

// MemorySampleFailures is a Counter of failed memory sampling attempts
var MemorySampleFailures prometheus.Counter

// GovernorCleanups is a Counter of cleanup passes performed, labeled by tier
var GovernorCleanups *prometheus.CounterVec

// GovernorSessionsReclaimed is a Counter of sessions removed by cleanup passes
var GovernorSessionsReclaimed prometheus.Counter

// GovernorEntriesReclaimed is a Counter of cache entries removed by cleanup passes
var GovernorEntriesReclaimed prometheus.Counter

// GovernorActiveSessions is a Gauge of live sessions across all registered session holders
var GovernorActiveSessions prometheus.Gauge

// GovernorCachedObjects is a Gauge of cached objects across all registered caches
var GovernorCachedObjects prometheus.Gauge

func init() {

	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: buildSubsystem,
			Name:      "info",
			Help: "A metric with a constant '1' value labeled by version," +
				"revision, and goversion from which the application was built.",
		},
		[]string{"goversion", "revision", "version"},
	)

	CacheObjectOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_objects_total",
			Help:      "Count (in # of objects) of operations performed on an entity cache.",
		},
		[]string{"cache", "operation", "status"},
	)

	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "events_total",
			Help:      "Count of events performed on an entity cache.",
		},
		[]string{"cache", "event", "reason"},
	)

	CacheObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "usage_objects",
			Help:      "Number of objects in an entity cache.",
		},
		[]string{"cache"},
	)

	CacheMaxObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "max_usage_objects",
			Help:      "Object count threshold triggering an LRU eviction exercise.",
		},
		[]string{"cache"},
	)

	CacheQueriesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "queries_saved_total",
			Help:      "Count of backing-store queries avoided by cache hits or batch coalescing.",
		},
		[]string{"cache"},
	)

	MemoryUsedPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "memory_used_percent",
			Help:      "Most recent sampled system memory usage percentage.",
		},
	)

	MemorySampleFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "memory_sample_failures_total",
			Help:      "Count of failed memory sampling attempts.",
		},
	)

	GovernorCleanups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "cleanups_total",
			Help:      "Count of cleanup passes performed, labeled by tier.",
		},
		[]string{"tier"},
	)

	GovernorSessionsReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "sessions_reclaimed_total",
			Help:      "Count of sessions removed by cleanup passes.",
		},
	)

	GovernorEntriesReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "cache_entries_reclaimed_total",
			Help:      "Count of cache entries removed by cleanup passes.",
		},
	)

	GovernorActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "active_sessions",
			Help:      "Live sessions across all registered session holders.",
		},
	)

	GovernorCachedObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: governorSubsystem,
			Name:      "cached_objects",
			Help:      "Cached objects across all registered caches.",
		},
	)

	prometheus.MustRegister(
		BuildInfo,
		CacheObjectOperations,
		CacheEvents,
		CacheObjects,
		CacheMaxObjects,
		CacheQueriesSaved,
		MemoryUsedPercent,
		MemorySampleFailures,
		GovernorCleanups,
		GovernorSessionsReclaimed,
		GovernorEntriesReclaimed,
		GovernorActiveSessions,
		GovernorCachedObjects,
	)
}

// Handler returns the HTTP handler for the prometheus metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
