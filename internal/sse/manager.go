package sse

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/id"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/session"
)

const (
	queueSize      = 256
	subscriberSize = 64
)

// Subscriber is one open event stream.
type Subscriber struct {
	ID          string
	ConnectedAt time.Time
	// Events is closed when the subscriber is removed.
	Events <-chan Event
	// Done is closed together with Events.
	Done <-chan struct{}

	events chan Event
	done   chan struct{}
	types  []EventType
}

func (s *Subscriber) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Manager fans store changes out to subscribers. It remembers the latest
// state event of each kind so a new subscriber starts from the current
// settings, position and session.
type Manager struct {
	logger *slog.Logger
	queue  chan Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	latest map[EventType]Event
	seq    uint64

	// closeMu guards closed and the close of queue.
	closeMu sync.RWMutex
	closed  bool
}

// NewManager creates a manager. Call Start before emitting.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		logger: logger,
		queue:  make(chan Event, queueSize),
		subs:   make(map[string]*Subscriber),
		latest: make(map[EventType]Event),
	}
}

// Start runs the dispatch loop until ctx is done or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Go(func() {
		defer m.removeAll()
		for {
			select {
			case e, ok := <-m.queue:
				if !ok {
					return
				}
				m.dispatch(e)
			case <-ctx.Done():
				return
			}
		}
	})
}

// Shutdown refuses new events and subscribers, delivers what is queued
// and closes every subscriber.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closeMu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("event queue not drained before shutdown")
	}

	m.removeAll()
	return nil
}

// Emit queues e. It never blocks: with a full queue, or after Shutdown,
// the event is dropped.
func (m *Manager) Emit(e Event) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- e:
	default:
		m.logger.Error("event queue full, dropping event", slog.String("event_type", string(e.Type)))
	}
}

func (m *Manager) dispatch(e Event) {
	// One critical section with Subscribe, so an event is either replayed
	// to a new subscriber or delivered to it, never both.
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e.ID = m.seq
	if e.Type.IsState() {
		m.latest[e.Type] = e
	}

	var delivered, dropped int
	for _, sub := range m.subs {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.events <- e:
			delivered++
		default:
			dropped++
		}
	}
	m.logger.Debug("event dispatched",
		slog.String("event_type", string(e.Type)),
		slog.Uint64("id", e.ID),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// Subscribe opens a stream limited to types (all types when empty). The
// latest state events matching the filter are queued first.
func (m *Manager) Subscribe(types ...EventType) (*Subscriber, error) {
	m.closeMu.RLock()
	closed := m.closed
	m.closeMu.RUnlock()
	if closed {
		return nil, domainerrors.Unavailable("event stream is shutting down")
	}

	subID, err := id.Subscriber.New()
	if err != nil {
		return nil, err
	}
	events := make(chan Event, subscriberSize)
	done := make(chan struct{})
	sub := &Subscriber{
		ID:          subID,
		ConnectedAt: time.Now(),
		Events:      events,
		Done:        done,
		events:      events,
		done:        done,
		types:       types,
	}

	m.mu.Lock()
	replay := make([]Event, 0, len(m.latest))
	for _, e := range m.latest {
		if sub.wants(e.Type) {
			replay = append(replay, e)
		}
	}
	slices.SortFunc(replay, func(a, b Event) int { return cmp.Compare(a.ID, b.ID) })
	for _, e := range replay {
		events <- e
	}
	m.subs[sub.ID] = sub
	total := len(m.subs)
	m.mu.Unlock()

	m.logger.Info("event subscriber added",
		slog.String("subscriber_id", sub.ID),
		slog.Int("replayed", len(replay)),
		slog.Int("subscribers", total))
	return sub, nil
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (m *Manager) Unsubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if ok {
		delete(m.subs, subID)
		close(sub.done)
		close(sub.events)
	}
	total := len(m.subs)
	m.mu.Unlock()

	if ok {
		m.logger.Info("event subscriber removed",
			slog.String("subscriber_id", subID),
			slog.Duration("connected_for", time.Since(sub.ConnectedAt)),
			slog.Int("subscribers", total))
	}
}

// SubscriberCount returns the number of open streams.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Manager) removeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for subID, sub := range m.subs {
		close(sub.done)
		close(sub.events)
		delete(m.subs, subID)
	}
}

// WatchPrefs emits the current settings and position, then forwards
// preference changes until unsubscribe is called.
func (m *Manager) WatchPrefs(p *prefs.Store) (unsubscribe func()) {
	snap := p.Get()
	m.Emit(NewSettingsEvent(snap.Settings))
	m.Emit(NewPositionEvent(snap.Position))
	return p.Subscribe(func(c prefs.Change) {
		switch c.Kind {
		case prefs.ChangeSettings:
			m.Emit(NewSettingsEvent(c.Snapshot.Settings))
		case prefs.ChangePosition:
			m.Emit(NewPositionEvent(c.Snapshot.Position))
		}
	})
}

// WatchSession emits the current session, then forwards login, logout and
// refresh.
func (m *Manager) WatchSession(s *session.Store) {
	m.Emit(NewSessionEvent(s.Current()))
	s.Subscribe(func(sess domain.Session) {
		m.Emit(NewSessionEvent(sess))
	})
}
