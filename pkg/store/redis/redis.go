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

// Package redis is the redis implementation of the record Store and
// supports Standalone, Sentinel and Cluster
package redis

import (
	"time"

	"github.com/relaycache/relaycache/pkg/store"
	"github.com/relaycache/relaycache/pkg/store/options"

	"github.com/go-redis/redis"
)

// Client implements the store.Store interface
var _ store.Store = &Client{}

// Client represents a redis store client
type Client struct {
	Name   string
	Config *options.Options
	client redis.Cmdable
	closer func() error
}

// New returns a new redis store client
func New(name string, o *options.Options) *Client {
	if o == nil {
		o = options.New()
	}
	return &Client{Name: name, Config: o}
}

// Connect connects to the configured redis endpoint
func (c *Client) Connect() error {
	r := c.Config.Redis
	switch r.ClientType {
	case "sentinel":
		client := redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    r.SentinelMaster,
			SentinelAddrs: r.Endpoints,
			Password:      r.Password,
			DB:            r.DB,
		})
		c.closer = client.Close
		c.client = client
	case "cluster":
		client := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    r.Endpoints,
			Password: r.Password,
		})
		c.closer = client.Close
		c.client = client
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     r.Endpoint,
			Password: r.Password,
			DB:       r.DB,
		})
		c.closer = client.Close
		c.client = client
	}
	return c.client.Ping().Err()
}

// Write places the payload into redis under key with the provided TTL.
// Redis manages expiry internally.
func (c *Client) Write(key string, data []byte, ttl time.Duration) error {
	return c.client.Set(key, data, ttl).Err()
}

// Read returns the payload stored under key, or store.ErrKNF
func (c *Client) Read(key string) ([]byte, error) {
	res, err := c.client.Get(key).Result()
	if err == nil {
		return []byte(res), nil
	}
	if err == redis.Nil {
		return nil, store.ErrKNF
	}
	return nil, err
}

// ReadBatch returns the payloads stored under keys in one MGET;
// missing keys are omitted from the result
func (c *Client) ReadBatch(keys []string) (map[string][]byte, error) {
	res, err := c.client.MGet(keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range res {
		if i >= len(keys) || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

// Delete removes the provided keys from redis
func (c *Client) Delete(keys ...string) error {
	return c.client.Del(keys...).Err()
}

// Keys enumerates the store's keys
func (c *Client) Keys() ([]string, error) {
	return c.client.Keys("*").Result()
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
