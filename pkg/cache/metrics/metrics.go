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

package metrics

import (
	gm "github.com/relaycache/relaycache/pkg/observability/metrics"
)

// ObserveCacheHit records a cache hit event
func ObserveCacheHit(cacheName string) {
	ObserveCacheOperation(cacheName, "get", "hit")
	gm.CacheQueriesSaved.WithLabelValues(cacheName).Inc()
}

// ObserveCacheMiss records a cache miss event
func ObserveCacheMiss(cacheName string) {
	ObserveCacheOperation(cacheName, "get", "miss")
}

// ObserveCacheDel records a cache deletion event
func ObserveCacheDel(cacheName string, count float64) {
	gm.CacheObjectOperations.WithLabelValues(cacheName, "del", "none").Add(count)
}

// ObserveCacheOperation increments counters as cache operations occur
func ObserveCacheOperation(cacheName, operation, status string) {
	gm.CacheObjectOperations.WithLabelValues(cacheName, operation, status).Inc()
}

// ObserveCacheEvent increments counters as cache events occur
func ObserveCacheEvent(cacheName, event, reason string) {
	gm.CacheEvents.WithLabelValues(cacheName, event, reason).Inc()
}

// ObserveCacheSizeChange updates the object gauge as the cache size changes
func ObserveCacheSizeChange(cacheName string, objectCount int64) {
	gm.CacheObjects.WithLabelValues(cacheName).Set(float64(objectCount))
}

// ObserveQueriesSaved adds to the running count of avoided backing-store queries
func ObserveQueriesSaved(cacheName string, count float64) {
	if count > 0 {
		gm.CacheQueriesSaved.WithLabelValues(cacheName).Add(count)
	}
}
