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

// Package sessions provides an in-memory registry of per-user session
// state. A Registry implements collections.Collection so an attached
// governor can expire idle sessions by age.
package sessions

import (
	"sync"
	"time"

	"github.com/relaycache/relaycache/pkg/collections"
	"github.com/relaycache/relaycache/pkg/locks"
	"github.com/relaycache/relaycache/pkg/observability/logging"
	"github.com/relaycache/relaycache/pkg/observability/logging/logger"
)

// Session holds the transient state of one user conversation
type Session struct {
	// UserID is the accessor for the Session in its Registry
	UserID string `json:"user_id"`
	// Data is arbitrary per-session state keyed by field name
	Data         map[string]any `json:"data"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// Registry is a concurrency-safe map of live Sessions keyed by user id
type Registry struct {
	name     string
	mtx      sync.Mutex
	sessions map[string]*Session
	locker   locks.NamedLocker
	// now is swappable so tests can control idle-age math
	now func() time.Time
}

// NewRegistry returns a new empty session Registry
func NewRegistry(name string) *Registry {
	return &Registry{
		name:     name,
		sessions: make(map[string]*Session),
		locker:   locks.NewNamedLocker(),
		now:      time.Now,
	}
}

// Set creates or replaces the Session for userID and returns it
func (r *Registry) Set(userID string, data map[string]any) *Session {
	if data == nil {
		data = make(map[string]any)
	}
	now := r.now()
	s := &Session{UserID: userID, Data: data, CreatedAt: now, LastActivity: now}
	r.mtx.Lock()
	r.sessions[userID] = s
	r.mtx.Unlock()
	return s
}

// Get returns the Session for userID without refreshing its activity time
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mtx.Lock()
	s, ok := r.sessions[userID]
	r.mtx.Unlock()
	return s, ok
}

// Touch refreshes the activity time of the Session for userID,
// reporting whether such a session exists
func (r *Registry) Touch(userID string) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return false
	}
	s.LastActivity = r.now()
	return true
}

// Update applies fn to the Session for userID under a per-user named
// lock, so concurrent read-modify-write sequences on the same user do
// not interleave. The session is created if absent, and its activity
// time is refreshed.
func (r *Registry) Update(userID string, fn func(*Session)) error {
	nl, err := r.locker.Acquire(userID)
	if err != nil {
		return err
	}
	s, ok := r.Get(userID)
	if !ok {
		s = r.Set(userID, nil)
	}
	fn(s)
	r.mtx.Lock()
	s.LastActivity = r.now()
	r.mtx.Unlock()
	return nl.Release()
}

// Delete removes the Session for userID, reporting whether one existed
func (r *Registry) Delete(userID string) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.sessions[userID]; !ok {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Name returns the Registry name
func (r *Registry) Name() string {
	return r.name
}

// Kind identifies the Registry as a session holder for cleanup purposes
func (r *Registry) Kind() collections.Kind {
	return collections.KindSessionHolder
}

// Len returns the number of live Sessions
func (r *Registry) Len() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.sessions)
}

// Entries enumerates the Registry's Sessions and their activity times
func (r *Registry) Entries() []collections.Entry {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]collections.Entry, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, collections.Entry{Key: id, LastActivity: s.LastActivity})
	}
	return out
}

// Shrink sheds Sessions per the criteria and returns the number removed.
// A Registry has no size bound, so ShrinkToBound removes nothing.
func (r *Registry) Shrink(criteria collections.ShrinkCriteria) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	switch criteria.Mode {
	case collections.ShrinkClear:
		n := len(r.sessions)
		r.sessions = make(map[string]*Session)
		return n
	case collections.ShrinkByMaxIdle:
		if criteria.MaxIdle <= 0 {
			return 0
		}
		cutoff := r.now().Add(-criteria.MaxIdle)
		var removed int
		for id, s := range r.sessions {
			if s.LastActivity.Before(cutoff) {
				delete(r.sessions, id)
				removed++
			}
		}
		if removed > 0 {
			logger.Debug("idle sessions expired",
				logging.Pairs{"registry": r.name, "count": removed})
		}
		return removed
	}
	return 0
}

var _ collections.Collection = &Registry{}
