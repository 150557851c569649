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

// Package collections defines the capability contract a session holder
// or cache must implement to opt into governor-driven cleanup. It
// replaces the optional runtime method probing of earlier designs with
// a compile-time-checked interface.
package collections

import "time"

// Kind indicates how the governor treats a registered Collection
// during a routine cleanup pass
type Kind int

const (
	// KindSessionHolder collections are trimmed by idle age
	KindSessionHolder Kind = iota
	// KindCache collections are LRU-trimmed when over their size bound
	KindCache
)

// Mode selects the shrink strategy applied by a Collection
type Mode int

const (
	// ShrinkToBound removes expired entries, then least-recently-used
	// entries until the Collection is within its configured size bound
	ShrinkToBound Mode = iota
	// ShrinkByMaxIdle removes entries whose idle time exceeds MaxIdle
	ShrinkByMaxIdle
	// ShrinkClear removes all entries
	ShrinkClear
)

// ShrinkCriteria describes one shrink request issued to a Collection
type ShrinkCriteria struct {
	Mode    Mode
	MaxIdle time.Duration
}

// Entry describes one member of a Collection for enumeration purposes
type Entry struct {
	Key          string
	LastActivity time.Time
}

// Collection is any keyed holder of time-stamped entries that can shed
// load on request. The governor holds non-owning references to
// Collections and only ever calls the methods below.
type Collection interface {
	Name() string
	Kind() Kind
	Len() int
	Entries() []Entry
	// Shrink sheds entries per the criteria and returns the number removed
	Shrink(ShrinkCriteria) int
}
