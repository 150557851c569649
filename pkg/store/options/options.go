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
	"fmt"

	d "github.com/relaycache/relaycache/pkg/config/defaults"
)

// BBoltOptions is a collection of configurations for bbolt stores
type BBoltOptions struct {
	// Filename represents the filename (with path) of the bbolt database
	Filename string `yaml:"filename,omitempty"`
	// Bucket represents the name of the bucket within bbolt under which
	// this store's records will be stored
	Bucket string `yaml:"bucket,omitempty"`
}

// RedisOptions is a collection of configurations for connecting to redis
type RedisOptions struct {
	// ClientType defines the type of Redis Client ("standard", "cluster", "sentinel")
	ClientType string `yaml:"client_type,omitempty"`
	// Endpoint represents FQDN:port or IP:Port of the Redis endpoint
	Endpoint string `yaml:"endpoint,omitempty"`
	// Endpoints represents FQDN:port or IP:Port collection of a Redis Cluster or Sentinel Nodes
	Endpoints []string `yaml:"endpoints,omitempty"`
	// SentinelMaster should be set when using Redis Sentinel to indicate the Master Node
	SentinelMaster string `yaml:"sentinel_master,omitempty"`
	// Password can be set when using a password protected redis instance
	Password string `yaml:"password,omitempty"`
	// DB is the Database to be selected after connecting to the server
	DB int `yaml:"db,omitempty"`
}

// Options is a collection of configurations for the persistent record store
type Options struct {
	// Provider is the name of the store implementation ("bbolt" or "redis")
	Provider string `yaml:"provider,omitempty"`
	// Compression indicates whether payloads are snappy-compressed at rest
	Compression bool `yaml:"compression"`
	// BBolt is the bbolt store configuration
	BBolt *BBoltOptions `yaml:"bbolt,omitempty"`
	// Redis is the redis store configuration
	Redis *RedisOptions `yaml:"redis,omitempty"`
}

// New returns a new store Options reference with default values set
func New() *Options {
	return &Options{
		Provider:    d.DefaultStoreProvider,
		Compression: true,
		BBolt: &BBoltOptions{
			Filename: d.DefaultBBoltFile,
			Bucket:   d.DefaultBBoltBucket,
		},
		Redis: &RedisOptions{
			ClientType: "standard",
			Endpoint:   d.DefaultRedisEndpoint,
		},
	}
}

// Clone returns an exact copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	if o.BBolt != nil {
		b := *o.BBolt
		out.BBolt = &b
	}
	if o.Redis != nil {
		r := *o.Redis
		r.Endpoints = append([]string(nil), o.Redis.Endpoints...)
		out.Redis = &r
	}
	return &out
}

// Initialize overlays defaults onto any sections omitted from the YAML
func (o *Options) Initialize() error {
	def := New()
	if o.Provider == "" {
		o.Provider = def.Provider
	}
	if o.BBolt == nil {
		o.BBolt = def.BBolt
	} else {
		if o.BBolt.Filename == "" {
			o.BBolt.Filename = def.BBolt.Filename
		}
		if o.BBolt.Bucket == "" {
			o.BBolt.Bucket = def.BBolt.Bucket
		}
	}
	if o.Redis == nil {
		o.Redis = def.Redis
	} else {
		if o.Redis.ClientType == "" {
			o.Redis.ClientType = def.Redis.ClientType
		}
		if o.Redis.Endpoint == "" && len(o.Redis.Endpoints) == 0 {
			o.Redis.Endpoint = def.Redis.Endpoint
		}
	}
	return nil
}

// Validate returns an error if the subject Options holds an invalid configuration
func (o *Options) Validate() error {
	switch o.Provider {
	case "bbolt":
		if o.BBolt == nil || o.BBolt.Filename == "" {
			return fmt.Errorf("bbolt store requires a filename")
		}
		if o.BBolt.Bucket == "" {
			return fmt.Errorf("bbolt store requires a bucket name")
		}
	case "redis":
		if o.Redis == nil || (o.Redis.Endpoint == "" && len(o.Redis.Endpoints) == 0) {
			return fmt.Errorf("redis store requires an endpoint")
		}
	default:
		return fmt.Errorf("invalid store provider name: %s", o.Provider)
	}
	return nil
}
