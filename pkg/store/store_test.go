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

package store

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// mapStore is an in-memory Store for exercising the wrappers
type mapStore struct {
	data map[string][]byte
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Connect() error { return nil }

func (m *mapStore) Read(key string) ([]byte, error) {
	b, ok := m.data[key]
	if !ok {
		return nil, ErrKNF
	}
	return b, nil
}

func (m *mapStore) ReadBatch(keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if b, ok := m.data[k]; ok {
			out[k] = b
		}
	}
	return out, nil
}

func (m *mapStore) Write(key string, data []byte, _ time.Duration) error {
	m.data[key] = data
	return nil
}

func (m *mapStore) Delete(keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapStore) Keys() ([]string, error) {
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out, nil
}

func (m *mapStore) Close() error { return nil }

func TestCompressedStore(t *testing.T) {
	inner := newMapStore()
	s := NewCompressed(inner)

	payload := bytes.Repeat([]byte("relaycache "), 100)
	if err := s.Write("key", payload, 0); err != nil {
		t.Error(err)
	}

	// the payload at rest must be smaller than the original
	if at := len(inner.data["key"]); at >= len(payload) {
		t.Errorf("expected compressed payload, got %d bytes for %d in",
			at, len(payload))
	}

	out, err := s.Read("key")
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("expected an identical payload after decode")
	}

	if _, err = s.Read("missing"); !errors.Is(err, ErrKNF) {
		t.Errorf("expected error %s got %v", ErrKNF, err)
	}

	if err = s.Delete("key"); err != nil {
		t.Error(err)
	}
	if _, err = s.Read("key"); !errors.Is(err, ErrKNF) {
		t.Errorf("expected error %s got %v", ErrKNF, err)
	}
}

func TestLoader(t *testing.T) {
	s := newMapStore()
	s.Write("a", []byte("payload"), 0)

	loader := Loader(s)
	v, err := loader("a")
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(v.([]byte), []byte("payload")) {
		t.Errorf("unexpected payload: %v", v)
	}

	if _, err = loader("missing"); !errors.Is(err, ErrKNF) {
		t.Errorf("expected error %s got %v", ErrKNF, err)
	}
}

func TestBatchLoader(t *testing.T) {
	s := newMapStore()
	s.Write("a", []byte("1"), 0)
	s.Write("b", []byte("2"), 0)

	loader := BatchLoader(s)
	out, err := loader([]string{"a", "b", "missing"})
	if err != nil {
		t.Error(err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 results, got %d", len(out))
	}
	if _, ok := out["missing"]; ok {
		t.Error("expected missing key to be omitted")
	}
}

type putRecorder struct {
	records map[string]any
}

func (p *putRecorder) Put(key string, value any, _ time.Duration) {
	p.records[key] = value
}

func TestWarm(t *testing.T) {
	s := newMapStore()
	s.Write("a", []byte("1"), 0)
	s.Write("b", []byte("2"), 0)

	dest := &putRecorder{records: make(map[string]any)}
	loaded, err := Warm(s, dest, time.Minute)
	if err != nil {
		t.Error(err)
	}
	if loaded != 2 {
		t.Errorf("expected 2 records loaded, got %d", loaded)
	}
	if len(dest.records) != 2 {
		t.Errorf("expected 2 records in destination, got %d", len(dest.records))
	}
}
