package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/store"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func receive(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case e := <-sub.Events:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func expectNothing(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case e := <-sub.Events:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_DispatchesToAllSubscribers(t *testing.T) {
	m := setupTestManager(t)

	a, err := m.Subscribe()
	require.NoError(t, err)
	b, err := m.Subscribe()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.ID, "sub-"))
	assert.Equal(t, 2, m.SubscriberCount())

	m.Emit(NewSourcesImportedEvent("/tmp/a.json", 3))
	m.Emit(NewSourcesImportedEvent("/tmp/b.json", 1))

	for _, sub := range []*Subscriber{a, b} {
		first, second := receive(t, sub), receive(t, sub)
		assert.Equal(t, SourcesImportedEventData{Path: "/tmp/a.json", Count: 3}, first.Data)
		assert.Equal(t, first.ID+1, second.ID)
	}
}

func TestManager_TypeFilter(t *testing.T) {
	m := setupTestManager(t)

	sub, err := m.Subscribe(EventPositionUpdated)
	require.NoError(t, err)

	m.Emit(NewSourcesImportedEvent("/tmp/a.json", 3))
	m.Emit(NewPositionEvent(domain.ReadingPosition{ChapterIndex: 4}))

	e := receive(t, sub)
	assert.Equal(t, EventPositionUpdated, e.Type)
	expectNothing(t, sub)
}

func TestManager_ReplaysLatestState(t *testing.T) {
	m := setupTestManager(t)
	first, err := m.Subscribe()
	require.NoError(t, err)

	m.Emit(NewPositionEvent(domain.ReadingPosition{ChapterIndex: 1}))
	m.Emit(NewSourcesImportedEvent("/tmp/a.json", 3))
	m.Emit(NewPositionEvent(domain.ReadingPosition{ChapterIndex: 2}))
	m.Emit(NewSettingsEvent(domain.DefaultReaderSettings()))
	for range 4 {
		receive(t, first)
	}

	late, err := m.Subscribe()
	require.NoError(t, err)

	// Only the newest event of each state type, in dispatch order.
	pos := receive(t, late)
	require.Equal(t, EventPositionUpdated, pos.Type)
	assert.Equal(t, 2, pos.Data.(domain.ReadingPosition).ChapterIndex)
	assert.Equal(t, EventSettingsUpdated, receive(t, late).Type)
	expectNothing(t, late)

	filtered, err := m.Subscribe(EventSettingsUpdated)
	require.NoError(t, err)
	assert.Equal(t, EventSettingsUpdated, receive(t, filtered).Type)
	expectNothing(t, filtered)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := setupTestManager(t)

	sub, err := m.Subscribe()
	require.NoError(t, err)
	m.Unsubscribe(sub.ID)
	m.Unsubscribe(sub.ID)

	assert.Zero(t, m.SubscriberCount())
	_, open := <-sub.Events
	assert.False(t, open)
	<-sub.Done
}

func TestManager_SlowSubscriberDropsEvents(t *testing.T) {
	m := setupTestManager(t)

	sub, err := m.Subscribe()
	require.NoError(t, err)

	for range subscriberSize + 10 {
		m.Emit(NewSourcesImportedEvent("/tmp/a.json", 1))
	}

	require.Eventually(t, func() bool { return len(sub.Events) == subscriberSize }, time.Second, 5*time.Millisecond)
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager(logger.Discard())
	m.Start(context.Background())

	sub, err := m.Subscribe()
	require.NoError(t, err)
	m.Emit(NewSourcesImportedEvent("/tmp/a.json", 1))

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	// Queued events are delivered before the stream closes.
	e, ok := <-sub.Events
	require.True(t, ok)
	assert.Equal(t, EventSourcesImported, e.Type)
	<-sub.Done
	assert.Zero(t, m.SubscriberCount())

	m.Emit(NewSourcesImportedEvent("/tmp/b.json", 1))
	_, err = m.Subscribe()
	require.Error(t, err)
}

func TestManager_WatchPrefs(t *testing.T) {
	m := setupTestManager(t)
	p := prefs.New(store.NewMemory(), logger.Discard())
	unsubscribe := m.WatchPrefs(p)

	sub, err := m.Subscribe(EventSettingsUpdated, EventPositionUpdated)
	require.NoError(t, err)

	// The current state arrives first, either replayed or dispatched.
	seen := map[EventType]bool{}
	for range 2 {
		seen[receive(t, sub).Type] = true
	}
	assert.True(t, seen[EventSettingsUpdated])
	assert.True(t, seen[EventPositionUpdated])

	p.ToggleTheme()
	e := receive(t, sub)
	require.Equal(t, EventSettingsUpdated, e.Type)
	assert.Equal(t, domain.ThemeDark, e.Data.(domain.ReaderSettings).Theme)

	p.SetCurrentBook(4, 2)
	e = receive(t, sub)
	require.Equal(t, EventPositionUpdated, e.Type)
	assert.Equal(t, 2, e.Data.(domain.ReadingPosition).ChapterIndex)

	unsubscribe()
	p.SetChapter(3)
	expectNothing(t, sub)
}

func TestParseTypes(t *testing.T) {
	tests := []struct {
		raw     string
		types   []EventType
		unknown []string
	}{
		{"", nil, nil},
		{"settings.updated", []EventType{EventSettingsUpdated}, nil},
		{" position.updated , sources.imported,", []EventType{EventPositionUpdated, EventSourcesImported}, nil},
		{"connected,bogus", nil, []string{"connected", "bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			types, unknown := ParseTypes(tt.raw)
			assert.Equal(t, tt.types, types)
			assert.Equal(t, tt.unknown, unknown)
		})
	}
}

func TestSessionEvent_OmitsToken(t *testing.T) {
	e := NewSessionEvent(domain.NewSession("secret-token", &domain.User{ID: 1, Username: "reader"}))

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
	assert.Contains(t, string(data), `"authenticated":true`)

	logout := NewSessionEvent(domain.Session{})
	assert.False(t, logout.Data.(SessionEventData).Authenticated)
}

type frame struct {
	id    string
	event string
	data  Event
}

func openStream(t *testing.T, url string) (*http.Response, func() frame, func() string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	lines := bufio.NewScanner(resp.Body)
	nextLine := func() string {
		t.Helper()
		require.True(t, lines.Scan(), "stream ended")
		return lines.Text()
	}
	nextFrame := func() frame {
		t.Helper()
		var f frame
		for {
			line := nextLine()
			switch {
			case strings.HasPrefix(line, "id: "):
				f.id = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f.data))
			case line == "" && f.event != "":
				return f
			}
		}
	}
	return resp, nextFrame, nextLine
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := setupTestManager(t)
	srv := httptest.NewServer(NewHandler(m, logger.Discard()))
	defer srv.Close()

	resp, next, _ := openStream(t, srv.URL)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	hello := next()
	assert.Equal(t, "connected", hello.event)
	assert.Empty(t, hello.id)

	m.Emit(NewSettingsEvent(domain.DefaultReaderSettings()))
	f := next()
	assert.Equal(t, string(EventSettingsUpdated), f.event)
	assert.Equal(t, EventSettingsUpdated, f.data.Type)
	assert.Equal(t, "1", f.id)
}

func TestHandler_TypeFilter(t *testing.T) {
	m := setupTestManager(t)
	srv := httptest.NewServer(NewHandler(m, logger.Discard()))
	defer srv.Close()

	_, next, _ := openStream(t, srv.URL+"?types=position.updated")
	assert.Equal(t, "connected", next().event)

	m.Emit(NewSettingsEvent(domain.DefaultReaderSettings()))
	m.Emit(NewPositionEvent(domain.ReadingPosition{ChapterIndex: 7}))
	assert.Equal(t, string(EventPositionUpdated), next().event)
}

func TestHandler_Keepalive(t *testing.T) {
	m := setupTestManager(t)
	srv := httptest.NewServer(NewHandler(m, logger.Discard(), WithHeartbeat(20*time.Millisecond)))
	defer srv.Close()

	_, next, nextLine := openStream(t, srv.URL)
	next()
	assert.Equal(t, ": keepalive", nextLine())
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	m := setupTestManager(t)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"post", http.MethodPost, "/", http.StatusMethodNotAllowed},
		{"unknown type", http.MethodGet, "/?types=bogus", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(m, nil).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Zero(t, m.SubscriberCount())
		})
	}
}
