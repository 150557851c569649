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

package locks

import (
	"sync"
	"testing"
)

func TestLocks(t *testing.T) {
	locker := NewNamedLocker()
	var testVal int

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nl, err := locker.Acquire("test")
			if err != nil {
				t.Error(err)
			}
			testVal++
			nl.Release()
		}()
	}
	wg.Wait()

	if testVal != 10 {
		t.Errorf("expected 10, got %d", testVal)
	}

	// the lock entry is removed once fully released
	lk := locker.(*namedLocker)
	lk.mapLock.Lock()
	n := len(lk.locks)
	lk.mapLock.Unlock()
	if n != 0 {
		t.Errorf("expected 0 registered locks, got %d", n)
	}
}

func TestRLocks(t *testing.T) {
	locker := NewNamedLocker()
	nl, err := locker.RAcquire("test")
	if err != nil {
		t.Error(err)
	}
	if err = nl.RRelease(); err != nil {
		t.Error(err)
	}
}

func TestInvalidLockName(t *testing.T) {
	locker := NewNamedLocker()
	if _, err := locker.Acquire(""); err == nil {
		t.Error("expected an error for an empty lock name")
	}
	if _, err := locker.RAcquire(""); err == nil {
		t.Error("expected an error for an empty lock name")
	}
}
