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

package governor

import (
	"errors"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// ErrInsufficientSamples is returned by Trend when fewer than two
// samples fall within the requested window
var ErrInsufficientSamples = errors.New("insufficient samples for trend analysis")

// Sample is one process/system memory usage reading
type Sample struct {
	// Total, Used and Available are system memory sizes in bytes
	Total     uint64 `json:"total_bytes"`
	Used      uint64 `json:"used_bytes"`
	Available uint64 `json:"available_bytes"`
	// UsedPercent is system memory usage as a percentage
	UsedPercent float64 `json:"used_percent"`
	// ActiveSessions counts live sessions across all registered session holders
	ActiveSessions int `json:"active_sessions"`
	// CachedObjects counts entries across all registered caches
	CachedObjects int `json:"cached_objects"`
	Timestamp     time.Time `json:"timestamp"`
}

// readSystemMemory takes one reading of system memory usage
func readSystemMemory() (Sample, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Total:       vm.Total,
		Used:        vm.Used,
		Available:   vm.Available,
		UsedPercent: vm.UsedPercent,
		Timestamp:   time.Now(),
	}, nil
}

// sampleRing is a bounded ring of the most recent Samples. Once full,
// the oldest sample is dropped for each one added.
type sampleRing struct {
	mtx     sync.Mutex
	samples []Sample
	head    int
	count   int
}

func newSampleRing(size int) *sampleRing {
	if size < 1 {
		size = 1
	}
	return &sampleRing{samples: make([]Sample, size)}
}

func (r *sampleRing) add(s Sample) {
	r.mtx.Lock()
	r.samples[r.head] = s
	r.head = (r.head + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
	r.mtx.Unlock()
}

func (r *sampleRing) len() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.count
}

// last returns the most recently added Sample, if any
func (r *sampleRing) last() (Sample, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.count == 0 {
		return Sample{}, false
	}
	i := (r.head - 1 + len(r.samples)) % len(r.samples)
	return r.samples[i], true
}

// since returns, in chronological order, the Samples taken at or after cutoff
func (r *sampleRing) since(cutoff time.Time) []Sample {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]Sample, 0, r.count)
	start := (r.head - r.count + len(r.samples)) % len(r.samples)
	for i := 0; i < r.count; i++ {
		s := r.samples[(start+i)%len(r.samples)]
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// trend direction values
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// trendDeadband is the percentage-point change below which a trend is reported stable
const trendDeadband = 1.0

// TrendReport summarizes memory usage movement over a time window
type TrendReport struct {
	Direction string `json:"direction"`
	// ChangePoints is the percentage-point difference between the newest
	// and oldest sample in the window
	ChangePoints float64       `json:"change_points"`
	Average      float64       `json:"average_usage"`
	Min          float64       `json:"min_usage"`
	Max          float64       `json:"max_usage"`
	DataPoints   int           `json:"data_points"`
	Window       time.Duration `json:"-"`
}

// computeTrend derives a TrendReport from chronologically ordered samples
func computeTrend(samples []Sample, window time.Duration) (TrendReport, error) {
	if len(samples) < 2 {
		return TrendReport{}, ErrInsufficientSamples
	}
	change := samples[len(samples)-1].UsedPercent - samples[0].UsedPercent
	direction := TrendStable
	if change > trendDeadband {
		direction = TrendIncreasing
	} else if change < -trendDeadband {
		direction = TrendDecreasing
	}
	min := samples[0].UsedPercent
	max := samples[0].UsedPercent
	var sum float64
	for _, s := range samples {
		sum += s.UsedPercent
		if s.UsedPercent < min {
			min = s.UsedPercent
		}
		if s.UsedPercent > max {
			max = s.UsedPercent
		}
	}
	return TrendReport{
		Direction:    direction,
		ChangePoints: change,
		Average:      sum / float64(len(samples)),
		Min:          min,
		Max:          max,
		DataPoints:   len(samples),
		Window:       window,
	}, nil
}
