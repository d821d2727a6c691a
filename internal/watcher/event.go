package watcher

import "time"

// EventType is the kind of change observed.
type EventType uint8

const (
	// EventReady means a new or rewritten file stopped changing.
	EventReady EventType = iota + 1
	// EventRemoved means a file was deleted or moved away.
	EventRemoved
)

var eventNames = [...]string{EventReady: "ready", EventRemoved: "removed"}

func (t EventType) String() string {
	if int(t) < len(eventNames) && eventNames[t] != "" {
		return eventNames[t]
	}
	return "unknown"
}

// Event is a settled change to one file. Size and ModTime are only set
// for EventReady.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
