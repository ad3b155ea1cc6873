// ABOUTME: In-memory implementation of the kvstore interfaces for tests
// ABOUTME: Mirrors the SQLite store's semantics without touching disk

package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore implements Store with plain maps. It is intended for unit tests
// and exercises the same locking discipline as the SQLite store.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

// Table returns the named table, creating it on first use.
func (s *MemStore) Table(name string) (Table, error) {
	if !tableNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadTableName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		return t, nil
	}
	t := &memTable{data: make(map[string][]byte)}
	s.tables[name] = t
	return t, nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}

type memTable struct {
	lock sync.Mutex // the Acquire/Release transaction lock

	mu   sync.RWMutex // guards data
	data map[string][]byte
}

func (t *memTable) Acquire() {
	t.lock.Lock()
}

func (t *memTable) Release() {
	t.lock.Unlock()
}

func (t *memTable) Get(_ context.Context, key string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	value, ok := t.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (t *memTable) Set(_ context.Context, key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	t.data[key] = stored
	return nil
}

func (t *memTable) Keys(_ context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.data))
	for key := range t.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (t *memTable) ForEach(ctx context.Context, fn func(key string, value []byte) error) error {
	// Snapshot under the read lock so fn may write back to the table.
	t.mu.RLock()
	keys := make([]string, 0, len(t.data))
	for key := range t.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	snapshot := make([][]byte, len(keys))
	for i, key := range keys {
		snapshot[i] = t.data[key]
	}
	t.mu.RUnlock()

	for i, key := range keys {
		if err := fn(key, snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}
