// Package sse streams local store changes to companion clients as
// Server-Sent Events.
package sse

import (
	"slices"
	"strings"
	"time"

	"github.com/legado-reader/legado-client/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"

	// EventSettingsUpdated carries the new reader settings.
	EventSettingsUpdated EventType = "settings.updated"
	// EventPositionUpdated carries the new reading position.
	EventPositionUpdated EventType = "position.updated"
	// EventSessionChanged is sent on login, logout and refresh.
	EventSessionChanged EventType = "session.changed"
	// EventSourcesImported is sent when the watcher imports a source file.
	EventSourcesImported EventType = "sources.imported"
)

// stateTypes are replayed to new subscribers.
var stateTypes = []EventType{EventSettingsUpdated, EventPositionUpdated, EventSessionChanged}

// IsState reports whether t describes current state rather than a one-off
// occurrence.
func (t EventType) IsState() bool {
	return slices.Contains(stateTypes, t)
}

// ParseTypes reads a comma-separated type filter. Unknown names are
// returned separately so callers can reject them.
func ParseTypes(raw string) (types []EventType, unknown []string) {
	for name := range strings.SplitSeq(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := EventType(name)
		if t.IsState() || t == EventSourcesImported {
			types = append(types, t)
		} else {
			unknown = append(unknown, name)
		}
	}
	return types, unknown
}

// Event is one message on the stream. ID increases by one per dispatched
// event; it is zero for the connected greeting.
type Event struct {
	ID        uint64    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      EventType `json:"type"`
}

// SessionEventData never includes the token.
type SessionEventData struct {
	User          *domain.User `json:"user,omitempty"`
	Authenticated bool         `json:"authenticated"`
}

// SourcesImportedEventData describes one imported file.
type SourcesImportedEventData struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// NewSettingsEvent creates a settings.updated event.
func NewSettingsEvent(s domain.ReaderSettings) Event {
	return Event{Type: EventSettingsUpdated, Data: s, Timestamp: time.Now()}
}

// NewPositionEvent creates a position.updated event.
func NewPositionEvent(p domain.ReadingPosition) Event {
	return Event{Type: EventPositionUpdated, Data: p, Timestamp: time.Now()}
}

// NewSessionEvent creates a session.changed event.
func NewSessionEvent(s domain.Session) Event {
	return Event{
		Type: EventSessionChanged,
		Data: SessionEventData{
			Authenticated: s.IsAuthenticated(),
			User:          s.User,
		},
		Timestamp: time.Now(),
	}
}

// NewSourcesImportedEvent creates a sources.imported event.
func NewSourcesImportedEvent(path string, count int) Event {
	return Event{
		Type:      EventSourcesImported,
		Data:      SourcesImportedEventData{Path: path, Count: count},
		Timestamp: time.Now(),
	}
}
