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

package entity

import (
	"sort"
	"time"
)

// Entry contains a cached record and its retention metadata
type Entry struct {
	// Key is the accessor for the Entry in the Cache
	Key string
	// Value is the opaque record payload, returned verbatim to callers
	Value any
	// CreatedAt is the time of insertion or last refresh
	CreatedAt time.Time
	// Deadline is CreatedAt + ttl; the Entry is logically absent once now > Deadline
	Deadline time.Time
	// AccessCount and LastAccess rank the Entry for LRU eviction
	AccessCount int64
	LastAccess  time.Time
}

func (e *Entry) expired(now time.Time) bool {
	return !e.Deadline.IsZero() && now.After(e.Deadline)
}

func (e *Entry) touch(now time.Time) {
	e.AccessCount++
	e.LastAccess = now
}

// entriesAtime sorts Entries by LastAccess, oldest first, for LRU selection
type entriesAtime []*Entry

func (e entriesAtime) Len() int { return len(e) }

func (e entriesAtime) Less(i, j int) bool {
	return e[i].LastAccess.Before(e[j].LastAccess)
}

func (e entriesAtime) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

var _ sort.Interface = entriesAtime{}
