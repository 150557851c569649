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

// Options defines the operation of the Memory Governor
type Options struct {
	// SampleIntervalSecs defines how long the memory monitor sleeps between samples
	SampleIntervalSecs int `yaml:"sample_interval_secs,omitempty"`
	// CleanupIntervalSecs defines how long the governor sleeps between routine cleanup passes
	CleanupIntervalSecs int `yaml:"cleanup_interval_secs,omitempty"`
	// MaxSessionAgeSecs is the idle age beyond which a session is removed by routine cleanup
	MaxSessionAgeSecs int `yaml:"max_session_age_secs,omitempty"`
	// EmergencySessionAgeSecs is the shortened idle-age tolerance applied during emergency cleanup
	EmergencySessionAgeSecs int `yaml:"emergency_session_age_secs,omitempty"`
	// MemoryThreshold is the usage percentage above which high memory usage is logged
	MemoryThreshold float64 `yaml:"memory_threshold,omitempty"`
	// EmergencyMemoryThreshold is the usage percentage that triggers an emergency cleanup
	EmergencyMemoryThreshold float64 `yaml:"emergency_memory_threshold,omitempty"`
	// HistorySize is the number of memory samples retained for trend queries
	HistorySize int `yaml:"history_size,omitempty"`

	// Synthetic values populated by Initialize

	SampleInterval      time.Duration `yaml:"-"`
	CleanupInterval     time.Duration `yaml:"-"`
	MaxSessionAge       time.Duration `yaml:"-"`
	EmergencySessionAge time.Duration `yaml:"-"`
}

// New returns a new governor Options reference with default values set
func New() *Options {
	o := &Options{
		SampleIntervalSecs:       d.DefaultGovernorSampleIntervalSecs,
		CleanupIntervalSecs:      d.DefaultGovernorCleanupIntervalSecs,
		MaxSessionAgeSecs:        d.DefaultGovernorMaxSessionAgeSecs,
		EmergencySessionAgeSecs:  d.DefaultGovernorEmergencySessionAgeSecs,
		MemoryThreshold:          d.DefaultGovernorMemoryThreshold,
		EmergencyMemoryThreshold: d.DefaultGovernorEmergencyMemoryThreshold,
		HistorySize:              d.DefaultGovernorHistorySize,
	}
	o.synthesize()
	return o
}

// Clone returns an exact copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	return &out
}

var errThresholdOrder = errors.New("emergency_memory_threshold can't be lower than memory_threshold")
var errInvalidThreshold = errors.New("memory thresholds must be between 0 and 100")

// Validate returns an error if the subject Options holds an invalid configuration
func (o *Options) Validate() error {
	if o.MemoryThreshold <= 0 || o.MemoryThreshold > 100 ||
		o.EmergencyMemoryThreshold <= 0 || o.EmergencyMemoryThreshold > 100 {
		return errInvalidThreshold
	}
	if o.EmergencyMemoryThreshold < o.MemoryThreshold {
		return errThresholdOrder
	}
	return nil
}

// Initialize sets up the governor Options with default values and overlays
// any values that were set during YAML unmarshaling
func (o *Options) Initialize() error {
	if o.SampleIntervalSecs == 0 {
		o.SampleIntervalSecs = d.DefaultGovernorSampleIntervalSecs
	}
	if o.CleanupIntervalSecs == 0 {
		o.CleanupIntervalSecs = d.DefaultGovernorCleanupIntervalSecs
	}
	if o.MaxSessionAgeSecs == 0 {
		o.MaxSessionAgeSecs = d.DefaultGovernorMaxSessionAgeSecs
	}
	if o.EmergencySessionAgeSecs == 0 {
		o.EmergencySessionAgeSecs = d.DefaultGovernorEmergencySessionAgeSecs
	}
	if o.MemoryThreshold == 0 {
		o.MemoryThreshold = d.DefaultGovernorMemoryThreshold
	}
	if o.EmergencyMemoryThreshold == 0 {
		o.EmergencyMemoryThreshold = d.DefaultGovernorEmergencyMemoryThreshold
	}
	if o.HistorySize == 0 {
		o.HistorySize = d.DefaultGovernorHistorySize
	}
	o.synthesize()
	return nil
}

func (o *Options) synthesize() {
	o.SampleInterval = time.Duration(o.SampleIntervalSecs) * time.Second
	o.CleanupInterval = time.Duration(o.CleanupIntervalSecs) * time.Second
	o.MaxSessionAge = time.Duration(o.MaxSessionAgeSecs) * time.Second
	o.EmergencySessionAge = time.Duration(o.EmergencySessionAgeSecs) * time.Second
}
