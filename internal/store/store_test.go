package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/store"
	"github.com/legado-reader/legado-client/internal/store/storetest"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "badger"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_Conformance(t *testing.T) {
	storetest.Run(t, setupTestStore(t))
}

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	s, err := store.New(dir, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.KeyReaderSettings, []byte(`{"currentChapter":3}`)))
	require.NoError(t, s.Close())

	s, err = store.New(dir, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, store.KeyReaderSettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentChapter":3}`, string(got))
}

func TestBadgerStore_Closed(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "badger"), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), store.KeyDeviceID)
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), store.KeyDeviceID, []byte("x")), store.ErrClosed)
}

func TestMemory_FailWrites(t *testing.T) {
	m := store.NewMemory()
	m.FailWrites = errors.New("disk full")

	err := m.Set(context.Background(), "k", []byte("v"))
	assert.EqualError(t, err, "disk full")
}

func TestMemory_Closed(t *testing.T) {
	m := store.NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, store.ErrClosed))
}

func TestError_IsMatchesByKind(t *testing.T) {
	err := store.ErrNotFound.ForKey("x")

	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.False(t, errors.Is(err, store.ErrCorrupt))
	assert.Equal(t, "x", err.Key)
}
