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

package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/relaycache/relaycache/pkg/collections"
)

func TestSetGetDelete(t *testing.T) {
	r := NewRegistry("test")

	s := r.Set("user1", map[string]any{"step": "start"})
	if s.UserID != "user1" {
		t.Errorf("expected user1 got %s", s.UserID)
	}

	got, ok := r.Get("user1")
	if !ok {
		t.Fatal("expected session for user1")
	}
	if got.Data["step"] != "start" {
		t.Errorf("unexpected session data: %v", got.Data)
	}

	if _, ok = r.Get("user2"); ok {
		t.Error("expected no session for user2")
	}

	if !r.Delete("user1") {
		t.Error("expected delete to report an existing session")
	}
	if r.Delete("user1") {
		t.Error("expected delete to report a missing session")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestTouch(t *testing.T) {
	r := NewRegistry("test")
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Set("user1", nil)
	before, _ := r.Get("user1")
	first := before.LastActivity

	current = current.Add(time.Minute)
	if !r.Touch("user1") {
		t.Error("expected touch to report an existing session")
	}
	after, _ := r.Get("user1")
	if !after.LastActivity.After(first) {
		t.Error("expected activity time to advance")
	}

	if r.Touch("user2") {
		t.Error("expected touch to report a missing session")
	}
}

func TestUpdate(t *testing.T) {
	r := NewRegistry("test")

	// update creates the session when absent
	err := r.Update("user1", func(s *Session) {
		s.Data["count"] = 1
	})
	if err != nil {
		t.Error(err)
	}
	s, ok := r.Get("user1")
	if !ok || s.Data["count"] != 1 {
		t.Errorf("unexpected session state: %v", s)
	}

	// concurrent increments on one user must not interleave
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Update("user1", func(s *Session) {
				s.Data["count"] = s.Data["count"].(int) + 1
			})
		}()
	}
	wg.Wait()
	s, _ = r.Get("user1")
	if s.Data["count"] != 51 {
		t.Errorf("expected count 51, got %v", s.Data["count"])
	}
}

func TestShrinkByMaxIdle(t *testing.T) {
	r := NewRegistry("test")
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Set("old", nil)
	current = current.Add(2 * time.Hour)
	r.Set("young", nil)

	n := r.Shrink(collections.ShrinkCriteria{
		Mode: collections.ShrinkByMaxIdle, MaxIdle: time.Hour})
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, ok := r.Get("old"); ok {
		t.Error("expected the idle session to be removed")
	}
	if _, ok := r.Get("young"); !ok {
		t.Error("expected the recent session to survive")
	}

	// a zero idle age removes nothing
	if n = r.Shrink(collections.ShrinkCriteria{
		Mode: collections.ShrinkByMaxIdle}); n != 0 {
		t.Errorf("expected 0 removed, got %d", n)
	}
}

func TestShrinkClear(t *testing.T) {
	r := NewRegistry("test")
	r.Set("a", nil)
	r.Set("b", nil)

	if n := r.Shrink(collections.ShrinkCriteria{Mode: collections.ShrinkClear}); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestShrinkToBoundIsNoop(t *testing.T) {
	r := NewRegistry("test")
	r.Set("a", nil)
	if n := r.Shrink(collections.ShrinkCriteria{Mode: collections.ShrinkToBound}); n != 0 {
		t.Errorf("expected 0 removed, got %d", n)
	}
}

func TestCollectionContract(t *testing.T) {
	r := NewRegistry("sessions")
	if r.Name() != "sessions" {
		t.Errorf("expected name sessions got %s", r.Name())
	}
	if r.Kind() != collections.KindSessionHolder {
		t.Errorf("expected kind %d got %d", collections.KindSessionHolder, r.Kind())
	}
	r.Set("a", nil)
	entries := r.Entries()
	if len(entries) != 1 || entries[0].Key != "a" {
		t.Errorf("unexpected entries: %v", entries)
	}
}
