package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/logger"
)

func TestOptions_Accepts(t *testing.T) {
	opts := Options{Extensions: []string{".json"}, Skip: []string{"draft-*"}}

	tests := []struct {
		path   string
		accept bool
	}{
		{"/in/sources.json", true},
		{"/in/SOURCES.JSON", true},
		{"/in/.hidden.json", false},
		{"/in/sources.json.part", false},
		{"/in/sources.json~", false},
		{"/in/draft-1.json", false},
		{"/in/readme.txt", false},
		{"/in/.DS_Store", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.accept, opts.accepts(tt.path))
		})
	}
}

func TestOptions_Defaults(t *testing.T) {
	var opts Options
	assert.Equal(t, 200*time.Millisecond, opts.settleDelay())
	assert.True(t, opts.accepts("/a/b.txt"))
	assert.False(t, opts.accepts("/a/.b.txt"))

	opts.IncludeHidden = true
	assert.True(t, opts.accepts("/a/.b.txt"))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "ready", EventReady.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(0).String())
	assert.Equal(t, "unknown", EventType(9).String())
}

func setupTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()

	w, err := New(logger.Discard(), Options{
		Extensions:  []string{".json"},
		SettleDelay: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w, dir
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return Event{}
	}
}

func TestWatcher_ReportsSettledFile(t *testing.T) {
	w, dir := setupTestWatcher(t)

	path := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	ev := nextEvent(t, w)
	assert.Equal(t, EventReady, ev.Type)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, int64(2), ev.Size)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	w, dir := setupTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`[1]`), 0o600))

	ev := nextEvent(t, w)
	assert.Equal(t, filepath.Join(dir, "b.json"), ev.Path)
}

func TestWatcher_Removed(t *testing.T) {
	w, dir := setupTestWatcher(t)

	path := filepath.Join(dir, "gone.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	assert.Equal(t, EventReady, nextEvent(t, w).Type)

	require.NoError(t, os.Remove(path))
	ev := nextEvent(t, w)
	assert.Equal(t, EventRemoved, ev.Type)
	assert.Equal(t, "removed", ev.Type.String())
}

func TestWatch_RejectsFile(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	defer w.Stop()

	file := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	require.Error(t, w.Watch(file))
}
