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

// Package config provides RelayCache configuration abilities, including
// parsing configuration files as well as default values and state
package config

import (
	"os"

	cache "github.com/relaycache/relaycache/pkg/cache/entity/options"
	d "github.com/relaycache/relaycache/pkg/config/defaults"
	governor "github.com/relaycache/relaycache/pkg/governor/options"
	store "github.com/relaycache/relaycache/pkg/store/options"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// Caches is a map of named entity cache configurations
	Caches cache.Lookup `yaml:"caches,omitempty"`
	// Governor configures the memory governor
	Governor *governor.Options `yaml:"governor,omitempty"`
	// Store configures the persistent record store
	Store *store.Options `yaml:"store,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *LoggingConfig `yaml:"logging,omitempty"`
	// Metrics provides configurations for collecting metrics about the application
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// MainConfig is a collection of general configuration values
type MainConfig struct {
	// InstanceID represents a unique ID for the current instance, when
	// multiple instances run on the same host
	InstanceID int `yaml:"instance_id,omitempty"`
	// PingHandlerPath provides the path to register the Ping Handler for
	// checking that the application is running
	PingHandlerPath string `yaml:"ping_handler_path,omitempty"`
	// ConfigHandlerPath provides the path to register the Config Handler
	// for outputting the running configuration
	ConfigHandlerPath string `yaml:"config_handler_path,omitempty"`
}

// LoggingConfig is a collection of Logging configurations
type LoggingConfig struct {
	// LogFile provides the filepath to the instance's logfile. Set as
	// empty string to log to console.
	LogFile string `yaml:"log_file,omitempty"`
	// LogLevel provides the most granular level (e.g., DEBUG, INFO, ERROR) to log
	LogLevel string `yaml:"log_level,omitempty"`
}

// MetricsConfig is a collection of metrics collection configurations
type MetricsConfig struct {
	// ListenAddress is the IP on which the diagnostics listener serves
	ListenAddress string `yaml:"listen_address,omitempty"`
	// ListenPort is the TCP port of the diagnostics listener
	ListenPort int `yaml:"listen_port,omitempty"`
}

// NewConfig returns a Config with default values set
func NewConfig() *Config {
	return &Config{
		Main: &MainConfig{
			PingHandlerPath:   d.DefaultPingHandlerPath,
			ConfigHandlerPath: d.DefaultConfigHandlerPath,
		},
		Caches:   cache.Lookup{},
		Governor: governor.New(),
		Store:    store.New(),
		Logging: &LoggingConfig{
			LogFile:  d.DefaultLogFile,
			LogLevel: d.DefaultLogLevel,
		},
		Metrics: &MetricsConfig{
			ListenPort: d.DefaultMetricsListenPort,
		},
	}
}

// Load reads and parses the named config file, returning the
// fully-initialized and validated Config
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse parses YAML config data, returning the fully-initialized and
// validated Config
func Parse(data []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if err := c.Initialize(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize overlays defaults onto any sections omitted from the
// parsed config and populates synthetic values
func (c *Config) Initialize() error {
	def := NewConfig()
	if c.Main == nil {
		c.Main = def.Main
	}
	if c.Main.PingHandlerPath == "" {
		c.Main.PingHandlerPath = d.DefaultPingHandlerPath
	}
	if c.Main.ConfigHandlerPath == "" {
		c.Main.ConfigHandlerPath = d.DefaultConfigHandlerPath
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = d.DefaultLogLevel
	}
	if c.Metrics == nil {
		c.Metrics = def.Metrics
	}
	if c.Metrics.ListenPort == 0 {
		c.Metrics.ListenPort = d.DefaultMetricsListenPort
	}
	if len(c.Caches) == 0 {
		c.Caches = cache.Lookup{"default": cache.New()}
	}
	if err := c.Caches.Initialize(); err != nil {
		return err
	}
	if c.Governor == nil {
		c.Governor = def.Governor
	}
	if err := c.Governor.Initialize(); err != nil {
		return err
	}
	if c.Store == nil {
		c.Store = def.Store
	}
	return c.Store.Initialize()
}

// Validate returns an error if the Config holds an invalid configuration
func (c *Config) Validate() error {
	if err := c.Caches.Validate(); err != nil {
		return err
	}
	if err := c.Governor.Validate(); err != nil {
		return err
	}
	return c.Store.Validate()
}

// Clone returns an exact copy of the subject Config
func (c *Config) Clone() *Config {
	out := NewConfig()
	if c.Main != nil {
		m := *c.Main
		out.Main = &m
	}
	if c.Logging != nil {
		l := *c.Logging
		out.Logging = &l
	}
	if c.Metrics != nil {
		m := *c.Metrics
		out.Metrics = &m
	}
	if c.Caches != nil {
		out.Caches = make(cache.Lookup, len(c.Caches))
		for k, v := range c.Caches {
			out.Caches[k] = v.Clone()
		}
	}
	if c.Governor != nil {
		out.Governor = c.Governor.Clone()
	}
	if c.Store != nil {
		out.Store = c.Store.Clone()
	}
	return out
}
