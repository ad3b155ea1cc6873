// ABOUTME: Store and Table interfaces for named key/value tables
// ABOUTME: Defines the storage contract the message base is built on

package kvstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a requested key does not exist in a table.
var ErrKeyNotFound = errors.New("key not found")

// ErrBadTableName is returned when a table name contains characters outside
// [A-Za-z0-9_].
var ErrBadTableName = errors.New("invalid table name")

// Store opens named tables. Table handles are cheap and may be cached by
// callers; opening the same name twice returns the same underlying table.
type Store interface {
	Table(name string) (Table, error)

	// Close releases any resources held by the store
	Close() error
}

// Table is an ordered mapping from string keys to opaque serialized values.
//
// Acquire/Release bracket a multi-key transaction: a caller that reads keys
// and writes values based on what it read must hold the table lock for the
// whole sequence. Single-key writes do not need the lock. The lock is
// exclusive and in-process; it is not reentrant.
type Table interface {
	Acquire()
	Release()

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)

	// ForEach visits every entry in ascending key order. The visited values
	// are a snapshot; writing to the table from inside fn is allowed.
	ForEach(ctx context.Context, fn func(key string, value []byte) error) error
}
