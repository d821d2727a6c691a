package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/store"
	"github.com/legado-reader/legado-client/internal/store/sqlite"
)

func TestInspect_Empty(t *testing.T) {
	kv := store.NewMemory()
	var out bytes.Buffer

	require.NoError(t, inspect(context.Background(), &out, kv, false, ""))

	assert.Contains(t, out.String(), "Device ID:  (not assigned yet)")
	assert.Contains(t, out.String(), "Session:    none")
	assert.Contains(t, out.String(), "Settings:   defaults")
	assert.Contains(t, out.String(), "Covers:     0 cached placeholders")

	// Inspecting never assigns a device id.
	keys, err := kv.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestInspect_Populated(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	id, err := store.DeviceID(ctx, kv)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, store.KeyAuthSession, []byte("sealed-secret-token")))
	require.NoError(t, kv.Set(ctx, store.CoverHashKey("https://covers.example/1.jpg"), []byte("LEHV6nWB2yk8")))

	p := prefs.New(kv, nil)
	theme := domain.ThemeDark
	p.UpdateSettings(domain.SettingsPatch{Theme: &theme})
	p.SetCurrentBook(7, 3)

	var out bytes.Buffer
	require.NoError(t, inspect(ctx, &out, kv, true, ""))

	text := out.String()
	assert.Contains(t, text, "Device ID:  "+id)
	assert.Contains(t, text, "Session:    stored (19 bytes, sealed)")
	assert.Contains(t, text, "theme dark")
	assert.Contains(t, text, "Position:   book 7, chapter 3, offset 0")
	assert.Contains(t, text, "Covers:     1 cached placeholders")
	assert.Contains(t, text, "Keys (4):")
	assert.NotContains(t, text, "sealed-secret-token")
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"short", "device-id", "abc", "abc"},
		{"whitespace collapsed", "x", "{\n  \"a\": 1\n}", `{ "a": 1 }`},
		{"truncated", "x", string(bytes.Repeat([]byte("a"), 80)), string(bytes.Repeat([]byte("a"), 57)) + "..."},
		{"session hidden", store.KeyAuthSession, "secret", "<6 bytes>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview(tt.key, []byte(tt.value)))
		})
	}
}

func TestInspect_ShowsWriteTimes(t *testing.T) {
	ctx := context.Background()
	kv, err := sqlite.Open(filepath.Join(t.TempDir(), "legado.db"), nil)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set(ctx, store.KeyDeviceID, []byte("device-1")))

	var out bytes.Buffer
	require.NoError(t, inspect(ctx, &out, kv, true, "device"))

	assert.Contains(t, out.String(), "Keys (1):")
	assert.Regexp(t, `device-id\s+device-1  \(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\)`, out.String())
}
