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

// Package providers maps store provider names to their constructors
package providers

import (
	"fmt"

	"github.com/relaycache/relaycache/pkg/store"
	"github.com/relaycache/relaycache/pkg/store/bbolt"
	"github.com/relaycache/relaycache/pkg/store/options"
	"github.com/relaycache/relaycache/pkg/store/redis"
)

// provider names
const (
	BBolt = "bbolt"
	Redis = "redis"
)

// New returns an unconnected Store for the configured provider,
// wrapped with snappy payload compression when enabled
func New(name string, o *options.Options) (store.Store, error) {
	if o == nil {
		o = options.New()
	}
	var s store.Store
	switch o.Provider {
	case BBolt:
		s = bbolt.New(name, o)
	case Redis:
		s = redis.New(name, o)
	default:
		return nil, fmt.Errorf("invalid store provider name: %s", o.Provider)
	}
	if o.Compression {
		s = store.NewCompressed(s)
	}
	return s, nil
}
