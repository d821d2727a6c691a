// Package sqlite implements store.KV on a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/legado-reader/legado-client/internal/store"

	_ "modernc.org/sqlite"
)

// Pragmas applied to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

const (
	createTable = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
) WITHOUT ROWID`

	selectValue   = `SELECT value FROM kv WHERE key = ?`
	selectUpdated = `SELECT updated_at FROM kv WHERE key = ?`
	upsertValue   = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteKey = `DELETE FROM kv WHERE key = ?`
	// substr instead of LIKE so '%' and '_' in a prefix match literally.
	selectKeys = `SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`
)

// Store is a store.KV on one SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.KV = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	if logger != nil {
		logger.Debug("sqlite store opened", "path", path)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRowContext(ctx, selectValue, key).Scan(&value); err != nil {
		return nil, notFound(key, err)
	}
	return value, nil
}

// Set upserts value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertValue, key, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteKey, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix in key order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectKeys, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list keys %q: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdatedAt reports when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var ms int64
	if err := s.db.QueryRowContext(ctx, selectUpdated, key).Scan(&ms); err != nil {
		return time.Time{}, notFound(key, err)
	}
	return time.UnixMilli(ms), nil
}

func notFound(key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.ForKey(key)
	}
	return fmt.Errorf("get %s: %w", key, err)
}
