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
	"errors"
	"time"
)

// Putter is the subset of a cache's surface needed for warming
type Putter interface {
	Put(key string, value any, ttl time.Duration)
}

// Warm enumerates the store's keys and loads each record into dest,
// returning the number of records loaded. Keys deleted between
// enumeration and read are skipped.
func Warm(s Store, dest Putter, ttl time.Duration) (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	var loaded int
	for _, key := range keys {
		b, err := s.Read(key)
		if err != nil {
			if errors.Is(err, ErrKNF) {
				continue
			}
			return loaded, err
		}
		dest.Put(key, b, ttl)
		loaded++
	}
	return loaded, nil
}
