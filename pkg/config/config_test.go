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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	d "github.com/relaycache/relaycache/pkg/config/defaults"
)

const testYAML = `
main:
  instance_id: 2
logging:
  log_level: debug
metrics:
  listen_port: 9090
caches:
  entities:
    ttl_default_secs: 120
    max_size_entries: 500
  media:
    ttl_default_secs: 30
governor:
  sample_interval_secs: 10
  memory_threshold: 70
store:
  provider: redis
  redis:
    endpoint: 127.0.0.1:6379
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}

	if c.Main.InstanceID != 2 {
		t.Errorf("expected instance id 2, got %d", c.Main.InstanceID)
	}
	if c.Logging.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", c.Logging.LogLevel)
	}
	if c.Metrics.ListenPort != 9090 {
		t.Errorf("expected port 9090, got %d", c.Metrics.ListenPort)
	}

	ec, ok := c.Caches["entities"]
	if !ok {
		t.Fatal("expected an entities cache config")
	}
	if ec.Name != "entities" {
		t.Errorf("expected cache name to be set from the map key, got %s", ec.Name)
	}
	if ec.TTLDefault != 120*time.Second {
		t.Errorf("expected synthetic ttl of 120s, got %s", ec.TTLDefault)
	}
	if ec.MaxSizeEntries != 500 {
		t.Errorf("expected max size 500, got %d", ec.MaxSizeEntries)
	}
	// unset values fall back to defaults
	if ec.SweepIntervalSecs != d.DefaultCacheSweepIntervalSecs {
		t.Errorf("expected default sweep interval, got %d", ec.SweepIntervalSecs)
	}
	if mc := c.Caches["media"]; mc.MaxSizeEntries != d.DefaultCacheMaxSizeEntries {
		t.Errorf("expected default max size, got %d", mc.MaxSizeEntries)
	}

	if c.Governor.SampleInterval != 10*time.Second {
		t.Errorf("expected synthetic sample interval of 10s, got %s", c.Governor.SampleInterval)
	}
	if c.Governor.MemoryThreshold != 70 {
		t.Errorf("expected threshold 70, got %f", c.Governor.MemoryThreshold)
	}
	if c.Governor.EmergencyMemoryThreshold != d.DefaultGovernorEmergencyMemoryThreshold {
		t.Errorf("expected default emergency threshold, got %f",
			c.Governor.EmergencyMemoryThreshold)
	}

	if c.Store.Provider != "redis" {
		t.Errorf("expected redis provider, got %s", c.Store.Provider)
	}
	if c.Store.Redis.Endpoint != "127.0.0.1:6379" {
		t.Errorf("unexpected redis endpoint: %s", c.Store.Redis.Endpoint)
	}
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse([]byte(""))
	if err != nil {
		t.Fatal(err)
	}
	if c.Main.PingHandlerPath != d.DefaultPingHandlerPath {
		t.Errorf("expected default ping path, got %s", c.Main.PingHandlerPath)
	}
	if c.Metrics.ListenPort != d.DefaultMetricsListenPort {
		t.Errorf("expected default metrics port, got %d", c.Metrics.ListenPort)
	}
	if _, ok := c.Caches["default"]; !ok {
		t.Error("expected a default cache config")
	}
	if c.Store.Provider != d.DefaultStoreProvider {
		t.Errorf("expected default store provider, got %s", c.Store.Provider)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("caches: [not, a, map]")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestParseInvalid(t *testing.T) {
	doc := `
governor:
  memory_threshold: 95
  emergency_memory_threshold: 90
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected a validation error for inverted thresholds")
	}

	doc = `
store:
  provider: cassandra
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected a validation error for an unknown provider")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relaycache.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Main.InstanceID != 2 {
		t.Errorf("expected instance id 2, got %d", c.Main.InstanceID)
	}

	if _, err = Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestClone(t *testing.T) {
	c, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	clone := c.Clone()
	clone.Main.InstanceID = 99
	clone.Caches["entities"].MaxSizeEntries = 1
	clone.Governor.MemoryThreshold = 1
	if c.Main.InstanceID == 99 ||
		c.Caches["entities"].MaxSizeEntries == 1 ||
		c.Governor.MemoryThreshold == 1 {
		t.Error("expected the clone to be independent of the original")
	}
}
