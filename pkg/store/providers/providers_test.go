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

package providers

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/relaycache/relaycache/pkg/store/options"
)

func TestNew(t *testing.T) {
	o := options.New()
	o.BBolt.Filename = filepath.Join(t.TempDir(), "test.db")

	s, err := New("test", o)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// the compression wrapper must round-trip payloads
	if err = s.Write("key", []byte("payload"), 0); err != nil {
		t.Error(err)
	}
	data, err := s.Read("key")
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("unexpected payload: %s", data)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	o := options.New()
	o.Provider = "cassandra"
	if _, err := New("test", o); err == nil {
		t.Error("expected an error for an unknown provider")
	}
}

func TestNewRedisUnconnected(t *testing.T) {
	o := options.New()
	o.Provider = Redis
	s, err := New("test", o)
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Error("expected a client")
	}
}
