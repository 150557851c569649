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

package bbolt

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/relaycache/relaycache/pkg/store"
	"github.com/relaycache/relaycache/pkg/store/options"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	o := options.New()
	o.Provider = "bbolt"
	o.BBolt.Filename = filepath.Join(t.TempDir(), "test.db")
	c := New("test", o)
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnectBadFile(t *testing.T) {
	o := options.New()
	o.BBolt.Filename = "/root/no/such/dir/test.db"
	c := New("test", o)
	if err := c.Connect(); err == nil {
		t.Error("expected an error for unreachable db file")
	}
}

func TestWriteReadDelete(t *testing.T) {
	c := newTestClient(t)

	if err := c.Write("key", []byte("payload"), time.Minute); err != nil {
		t.Error(err)
	}

	data, err := c.Read("key")
	if err != nil {
		t.Error(err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("unexpected payload: %s", data)
	}

	if _, err = c.Read("missing"); !errors.Is(err, store.ErrKNF) {
		t.Errorf("expected error %s got %v", store.ErrKNF, err)
	}

	if err = c.Delete("key"); err != nil {
		t.Error(err)
	}
	if _, err = c.Read("key"); !errors.Is(err, store.ErrKNF) {
		t.Errorf("expected error %s got %v", store.ErrKNF, err)
	}
}

func TestReadBatch(t *testing.T) {
	c := newTestClient(t)
	c.Write("a", []byte("1"), 0)
	c.Write("b", []byte("2"), 0)

	out, err := c.ReadBatch([]string{"a", "b", "missing"})
	if err != nil {
		t.Error(err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 results, got %d", len(out))
	}
	if !bytes.Equal(out["b"], []byte("2")) {
		t.Errorf("unexpected payload: %s", out["b"])
	}
}

func TestKeys(t *testing.T) {
	c := newTestClient(t)
	c.Write("a", []byte("1"), 0)
	c.Write("b", []byte("2"), 0)

	keys, err := c.Keys()
	if err != nil {
		t.Error(err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %d", len(keys))
	}
}

func TestCloseUnopened(t *testing.T) {
	c := New("test", nil)
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}
