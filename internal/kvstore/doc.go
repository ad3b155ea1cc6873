// Package kvstore provides named key/value tables backed by SQLite.
//
// A Store opens Tables by name; each Table is an ordered mapping from
// string keys to opaque serialized values with a coarse per-table exclusive
// lock. The message base layers its record formats on top of these tables
// and uses Acquire/Release to make multi-key read-modify-write sequences
// (id assignment, tag reconciliation) atomic with respect to one another.
//
// Two implementations exist:
//
//   - SQLiteStore: durable storage via modernc.org/sqlite with WAL mode.
//     Each named table becomes its own kv_<name> SQLite table.
//   - MemStore: map-backed storage for unit tests.
//
// Table names are restricted to [A-Za-z0-9_] because they are embedded in
// schema DDL. Get of a missing key returns ErrKeyNotFound.
//
// The per-table lock is in-process only: the store assumes a single process
// owns the database file, which matches the one-process BBS deployment
// model.
package kvstore
