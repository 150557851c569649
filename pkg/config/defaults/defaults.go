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

// Package defaults provides default values for the configuration
package defaults

const (
	// DefaultLogFile is the default disk location for log files.
	// we use an empty string to indicate log to console
	DefaultLogFile = ""
	// DefaultLogLevel is the default level for logging
	DefaultLogLevel = "INFO"

	// DefaultPingHandlerPath is the default value for the Ping Handler path
	DefaultPingHandlerPath = "/ping"
	// DefaultConfigHandlerPath is the default value for the Running Config Handler path
	DefaultConfigHandlerPath = "/config"

	// DefaultMetricsListenPort is the default port that the HTTP metrics endpoint will listen on
	DefaultMetricsListenPort = 8481
	// DefaultMetricsListenAddress is the default address that the HTTP metrics endpoint will listen on
	DefaultMetricsListenAddress = ""

	// DefaultCacheTTLSecs is the default time-to-live applied to cached entries
	DefaultCacheTTLSecs = 300
	// DefaultCacheMaxSizeEntries indicates how many entries a cache may hold before the
	// least-recently-accessed entries are evicted
	DefaultCacheMaxSizeEntries = 1000
	// DefaultCacheEvictionBackoffEntries indicates how far below the size bound an LRU
	// eviction exercise drives the cache, to avoid immediately re-evicting
	DefaultCacheEvictionBackoffEntries = 10
	// DefaultCacheSweepIntervalSecs defines how long the expired-entry sweeper sleeps
	// between sweep cycles
	DefaultCacheSweepIntervalSecs = 60

	// DefaultGovernorSampleIntervalSecs defines how long the memory monitor sleeps between samples
	DefaultGovernorSampleIntervalSecs = 60
	// DefaultGovernorCleanupIntervalSecs defines how long the governor sleeps between
	// routine cleanup passes
	DefaultGovernorCleanupIntervalSecs = 300
	// DefaultGovernorMaxSessionAgeSecs is the idle age beyond which a session is removed
	// by a routine cleanup pass
	DefaultGovernorMaxSessionAgeSecs = 3600
	// DefaultGovernorEmergencySessionAgeSecs is the shortened idle-age tolerance applied
	// during an emergency cleanup
	DefaultGovernorEmergencySessionAgeSecs = 900
	// DefaultGovernorMemoryThreshold is the memory usage percentage above which high
	// usage is logged
	DefaultGovernorMemoryThreshold = 80.0
	// DefaultGovernorEmergencyMemoryThreshold is the memory usage percentage that
	// triggers an emergency cleanup
	DefaultGovernorEmergencyMemoryThreshold = 90.0
	// DefaultGovernorHistorySize is the number of memory samples retained for trend queries
	DefaultGovernorHistorySize = 100

	// DefaultStoreProvider is the default backing store provider
	DefaultStoreProvider = "bbolt"
	// DefaultBBoltFile is the default bbolt database filename
	DefaultBBoltFile = "relaycache.db"
	// DefaultBBoltBucket is the default bbolt bucket name
	DefaultBBoltBucket = "records"
	// DefaultRedisEndpoint is the default endpoint for a redis backing store
	DefaultRedisEndpoint = "redis:6379"
)
