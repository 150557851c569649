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

// Package store defines the persistent record store interface and its
// provider registry. Stores back the in-memory entity caches: records
// survive restarts and can be used to warm a cache on startup.
package store

import (
	"errors"
	"time"

	"github.com/relaycache/relaycache/pkg/encoding/snappy"
)

// ErrKNF is the error "key not found in store"
var ErrKNF = errors.New("key not found in store")

// Store is the interface a persistent record store must implement
type Store interface {
	// Connect establishes the connection or opens the backing file
	Connect() error
	// Read returns the payload stored under key, or ErrKNF
	Read(key string) ([]byte, error)
	// ReadBatch returns the payloads stored under keys in one pass;
	// missing keys are omitted from the result
	ReadBatch(keys []string) (map[string][]byte, error)
	// Write places the payload into the store under key with the provided TTL.
	// Providers without native expiry may ignore the TTL.
	Write(key string, data []byte, ttl time.Duration) error
	// Delete removes the provided keys from the store
	Delete(keys ...string) error
	// Keys enumerates the store's keys
	Keys() ([]string, error)
	Close() error
}

// NewCompressed wraps a Store with snappy payload compression
func NewCompressed(s Store) Store {
	return &compressedStore{inner: s}
}

// compressedStore snappy-encodes payloads on the way in and decodes
// them on the way out
type compressedStore struct {
	inner Store
}

func (c *compressedStore) Connect() error { return c.inner.Connect() }

func (c *compressedStore) Read(key string) ([]byte, error) {
	b, err := c.inner.Read(key)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(b)
}

func (c *compressedStore) ReadBatch(keys []string) (map[string][]byte, error) {
	encoded, err := c.inner.ReadBatch(keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(encoded))
	for k, v := range encoded {
		b, err := snappy.Decode(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return out, nil
}

func (c *compressedStore) Write(key string, data []byte, ttl time.Duration) error {
	return c.inner.Write(key, snappy.Encode(data), ttl)
}

func (c *compressedStore) Delete(keys ...string) error { return c.inner.Delete(keys...) }
func (c *compressedStore) Keys() ([]string, error)     { return c.inner.Keys() }
func (c *compressedStore) Close() error                { return c.inner.Close() }

// Loader adapts a Store into a cache loader function. A missing key
// surfaces as ErrKNF.
func Loader(s Store) func(key string) (any, error) {
	return func(key string) (any, error) {
		b, err := s.Read(key)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// BatchLoader adapts a Store into a cache batch loader function.
// Missing keys are omitted from the result.
func BatchLoader(s Store) func(keys []string) (map[string]any, error) {
	return func(keys []string) (map[string]any, error) {
		records, err := s.ReadBatch(keys)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(records))
		for k, v := range records {
			out[k] = v
		}
		return out, nil
	}
}
