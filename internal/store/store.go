// Package store provides the durable key-value adapters behind the client's
// local state: reader preferences, the sealed session, the device id and
// small caches.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// KV is the persistence adapter injected into the stores. Get returns
// ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Store is the badger-backed KV used by default.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ KV = (*Store)(nil)

// New opens (or creates) a badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Debug("badger database opened", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Debug("closing badger database")
	}
	return s.db.Close()
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, badgerError("get", key, err)
	}
	return out, nil
}

// Set stores value at key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return badgerError("set", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return badgerError("delete", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix, in key order.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, badgerError("list keys", prefix, err)
	}
	return keys, nil
}

func badgerError(op, key string, err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound.ForKey(key)
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed.ForKey(key)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

// GetJSON reads key from kv and decodes it into dest.
func GetJSON(ctx context.Context, kv KV, key string, dest any) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrCorrupt.ForKey(key).WithCause(err)
	}
	return nil
}

// SetJSON encodes value and writes it to key.
func SetJSON(ctx context.Context, kv KV, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return kv.Set(ctx, key, data)
}

// hasPrefix is shared by the adapters that filter keys in memory.
func hasPrefix(key, prefix string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}
