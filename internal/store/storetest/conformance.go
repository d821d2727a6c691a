// Package storetest holds the behavior every store.KV adapter must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/store"
)

// Run exercises kv against the store.KV contract. kv must start empty.
func Run(t *testing.T, kv store.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, "absent")
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, store.KeyReaderSettings, []byte(`{"settings":{}}`)))

		got, err := kv.Get(ctx, store.KeyReaderSettings)
		require.NoError(t, err)
		assert.JSONEq(t, `{"settings":{}}`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "k", []byte("one")))
		require.NoError(t, kv.Set(ctx, "k", []byte("two")))

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "gone", []byte("x")))
		require.NoError(t, kv.Delete(ctx, "gone"))

		_, err := kv.Get(ctx, "gone")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		assert.NoError(t, kv.Delete(ctx, "never-existed"))
	})

	t.Run("keys by prefix", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, store.CoverHashKey("http://a/1.jpg"), []byte("h1")))
		require.NoError(t, kv.Set(ctx, store.CoverHashKey("http://a/2.jpg"), []byte("h2")))

		keys, err := kv.Keys(ctx, store.CoverHashPrefix)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			store.CoverHashKey("http://a/1.jpg"),
			store.CoverHashKey("http://a/2.jpg"),
		}, keys)
	})

	t.Run("json helpers", func(t *testing.T) {
		type payload struct {
			Chapter int `json:"chapter"`
		}
		require.NoError(t, store.SetJSON(ctx, kv, "json", payload{Chapter: 4}))

		var got payload
		require.NoError(t, store.GetJSON(ctx, kv, "json", &got))
		assert.Equal(t, 4, got.Chapter)

		require.NoError(t, kv.Set(ctx, "broken", []byte("{not json")))
		err := store.GetJSON(ctx, kv, "broken", &got)
		assert.True(t, errors.Is(err, store.ErrCorrupt))
	})

	t.Run("device id is stable", func(t *testing.T) {
		first, err := store.DeviceID(ctx, kv)
		require.NoError(t, err)
		second, err := store.DeviceID(ctx, kv)
		require.NoError(t, err)

		assert.Len(t, first, 36)
		assert.Equal(t, first, second)
	})
}
