// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"sync"

	"github.com/poiesic/recall/storage"
)

// NewMemoryStore creates an in-memory store for testing.
// Caller must close the store when done.
func NewMemoryStore() (*Store, error) {
	return openStore("", true)
}

// MemoryOpener implements storage.Opener over a set of named in-memory
// stores, for tests that exercise the worker without touching disk.
// Stores are created on first open and reused afterwards, mirroring how
// an on-disk store persists across job submissions.
type MemoryOpener struct {
	mu     sync.Mutex
	stores map[string]*Store
}

var _ storage.Opener = (*MemoryOpener)(nil)

// NewMemoryOpener creates an empty MemoryOpener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{stores: make(map[string]*Store)}
}

// Open returns the in-memory store registered under storePath, creating
// it if needed. The returned store is shared; Close is a no-op so the
// worker's open/close cycles don't tear down test state.
func (o *MemoryOpener) Open(storePath string) (storage.Store, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.stores[storePath]; ok {
		return sharedStore{s}, nil
	}
	s, err := NewMemoryStore()
	if err != nil {
		return nil, err
	}
	o.stores[storePath] = s
	return sharedStore{s}, nil
}

// CloseAll closes every store created by the opener.
func (o *MemoryOpener) CloseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, s := range o.stores {
		s.Close()
	}
	o.stores = make(map[string]*Store)
}

// sharedStore wraps a Store with a no-op Close.
type sharedStore struct {
	*Store
}

func (sharedStore) Close() error { return nil }
