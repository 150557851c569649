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

package options

import (
	"errors"
	"time"

	d "github.com/relaycache/relaycache/pkg/config/defaults"
)

// Lookup is a map of Options keyed by cache name
type Lookup map[string]*Options

// Options defines the operation of an Entity Cache
type Options struct {
	// Name is the name of the cache, taken from the key in the Caches map
	Name string `yaml:"-"`
	// TTLDefaultSecs is the time-to-live applied when a caller does not provide one
	TTLDefaultSecs int `yaml:"ttl_default_secs,omitempty"`
	// MaxSizeEntries indicates how many entries the cache may hold before the
	// least-recently-accessed entries are evicted
	MaxSizeEntries int `yaml:"max_size_entries,omitempty"`
	// EvictionBackoffEntries indicates how far below max_size_entries an eviction
	// exercise drives the cache
	EvictionBackoffEntries int `yaml:"eviction_backoff_entries,omitempty"`
	// SweepIntervalSecs sets how long the expired-entry sweeper sleeps between cycles
	SweepIntervalSecs int `yaml:"sweep_interval_secs,omitempty"`
	// Singleflight enables coalescing of concurrent loader calls for the same
	// missing key. Off by default; parallel loads are harmless because the
	// backing store is authoritative.
	Singleflight bool `yaml:"singleflight,omitempty"`

	// Synthetic values populated by Initialize

	TTLDefault    time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`
}

// New returns a new cache Options reference with default values set
func New() *Options {
	return &Options{
		TTLDefaultSecs:         d.DefaultCacheTTLSecs,
		MaxSizeEntries:         d.DefaultCacheMaxSizeEntries,
		EvictionBackoffEntries: d.DefaultCacheEvictionBackoffEntries,
		SweepIntervalSecs:      d.DefaultCacheSweepIntervalSecs,
		TTLDefault:             time.Duration(d.DefaultCacheTTLSecs) * time.Second,
		SweepInterval:          time.Duration(d.DefaultCacheSweepIntervalSecs) * time.Second,
	}
}

// Clone returns an exact copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	return &out
}

// Equal returns true if all members of the subject and provided Options are identical
func (o *Options) Equal(o2 *Options) bool {
	if o2 == nil {
		return false
	}
	return o.Name == o2.Name &&
		o.TTLDefaultSecs == o2.TTLDefaultSecs &&
		o.MaxSizeEntries == o2.MaxSizeEntries &&
		o.EvictionBackoffEntries == o2.EvictionBackoffEntries &&
		o.SweepIntervalSecs == o2.SweepIntervalSecs &&
		o.Singleflight == o2.Singleflight
}

var ErrInvalidName = errors.New("invalid cache name")
var errEvictionBackoffTooBig = errors.New("EvictionBackoffEntries can't be larger than MaxSizeEntries")

// Validate returns an error if the subject Options holds an invalid configuration
func (o *Options) Validate() error {
	if o.Name == "" {
		return ErrInvalidName
	}
	if o.MaxSizeEntries > 0 && o.EvictionBackoffEntries > o.MaxSizeEntries {
		return errEvictionBackoffTooBig
	}
	return nil
}

// Initialize sets up the cache Options with default values and overlays
// any values that were set during YAML unmarshaling
func (o *Options) Initialize(name string) error {
	o.Name = name
	if o.TTLDefaultSecs == 0 {
		o.TTLDefaultSecs = d.DefaultCacheTTLSecs
	}
	if o.MaxSizeEntries == 0 {
		o.MaxSizeEntries = d.DefaultCacheMaxSizeEntries
	}
	if o.EvictionBackoffEntries == 0 {
		o.EvictionBackoffEntries = d.DefaultCacheEvictionBackoffEntries
	}
	if o.SweepIntervalSecs == 0 {
		o.SweepIntervalSecs = d.DefaultCacheSweepIntervalSecs
	}
	o.TTLDefault = time.Duration(o.TTLDefaultSecs) * time.Second
	o.SweepInterval = time.Duration(o.SweepIntervalSecs) * time.Second
	return nil
}

// Initialize initializes all cache options in the lookup with default values
// and overlays any values that were set during YAML unmarshaling
func (l Lookup) Initialize() error {
	for k, v := range l {
		if err := v.Initialize(k); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates all cache options in the lookup
func (l Lookup) Validate() error {
	for k, o := range l {
		o.Name = k
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}
