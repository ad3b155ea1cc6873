// ABOUTME: SQLite implementation of the kvstore interfaces using modernc.org/sqlite
// ABOUTME: Each named table maps to its own kv_<name> SQLite table

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]*sqliteTable
}

// NewSQLiteStore opens (or creates) the database at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "kvstore")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		tables: make(map[string]*sqliteTable),
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// Table returns the named table, creating its backing SQLite table on first
// use. Names are restricted to [A-Za-z0-9_] because they are embedded in the
// schema DDL.
func (s *SQLiteStore) Table(name string) (Table, error) {
	if !tableNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrBadTableName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		return t, nil
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS kv_%s (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`, name)
	if _, err := s.db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("creating table %q: %w", name, err)
	}

	t := &sqliteTable{
		db:      s.db,
		sqlName: "kv_" + name,
	}
	s.tables[name] = t
	return t, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTable struct {
	db      *sql.DB
	sqlName string
	lock    sync.Mutex
}

func (t *sqliteTable) Acquire() {
	t.lock.Lock()
}

func (t *sqliteTable) Release() {
	t.lock.Unlock()
}

func (t *sqliteTable) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", t.sqlName)

	var value []byte
	err := t.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %q: %w", key, err)
	}
	return value, nil
}

func (t *sqliteTable) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, t.sqlName)

	if _, err := t.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}
	return nil
}

func (t *sqliteTable) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT key FROM %s ORDER BY key", t.sqlName)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// ForEach reads a snapshot of all entries before invoking fn, so fn may
// write back to the table.
func (t *sqliteTable) ForEach(ctx context.Context, fn func(key string, value []byte) error) error {
	query := fmt.Sprintf("SELECT key, value FROM %s ORDER BY key", t.sqlName)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("iterating table: %w", err)
	}

	type entry struct {
		key   string
		value []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating entries: %w", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}
