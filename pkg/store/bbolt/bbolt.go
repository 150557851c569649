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

// Package bbolt is the bbolt implementation of the record Store
package bbolt

import (
	"fmt"
	"time"

	"github.com/relaycache/relaycache/pkg/store"
	"github.com/relaycache/relaycache/pkg/store/options"

	"go.etcd.io/bbolt"
)

// Client implements the store.Store interface
var _ store.Store = &Client{}

// Client describes a bbolt record store
type Client struct {
	Name   string
	Config *options.Options
	dbh    *bbolt.DB
}

// New returns a new bbolt store client
func New(name string, o *options.Options) *Client {
	if o == nil {
		o = options.New()
	}
	return &Client{Name: name, Config: o}
}

// Connect opens the configured bbolt database file and ensures the bucket exists
func (c *Client) Connect() error {
	var err error
	c.dbh, err = bbolt.Open(c.Config.BBolt.Filename, 0o644,
		&bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists([]byte(c.Config.BBolt.Bucket))
		if err2 != nil {
			return fmt.Errorf("create bucket: %w", err2)
		}
		return nil
	})
}

// Write places the payload into the store under key. bbolt has no
// native expiry, so the TTL is not used.
func (c *Client) Write(key string, data []byte, _ time.Duration) error {
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		return b.Put([]byte(key), data)
	})
}

// Read returns the payload stored under key, or store.ErrKNF
func (c *Client) Read(key string) ([]byte, error) {
	var data []byte
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		v := b.Get([]byte(key))
		if v == nil {
			return store.ErrKNF
		}
		// v is only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ReadBatch returns the payloads stored under keys in one transaction;
// missing keys are omitted from the result
func (c *Client) ReadBatch(keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		for _, key := range keys {
			v := b.Get([]byte(key))
			if v == nil {
				continue
			}
			data := make([]byte, len(v))
			copy(data, v)
			out[key] = data
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the provided keys from the store
func (c *Client) Delete(keys ...string) error {
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys enumerates the store's keys
func (c *Client) Keys() ([]string, error) {
	var keys []string
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) Close() error {
	if c.dbh == nil {
		return nil
	}
	return c.dbh.Close()
}
