// Package prefs holds the reader's display settings and last reading
// position, persisted under the "reader-settings" key.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/store"
)

// Snapshot is a copy of the store's state.
type Snapshot struct {
	Settings domain.ReaderSettings  `json:"settings"`
	Position domain.ReadingPosition `json:"position"`
}

// ChangeKind says which half of the state a mutation touched.
type ChangeKind int

const (
	ChangeSettings ChangeKind = iota + 1
	ChangePosition
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSettings:
		return "settings"
	case ChangePosition:
		return "position"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind     ChangeKind
	Snapshot Snapshot
}

// persisted is the on-disk layout. Settings stays raw so missing fields can
// be filled from defaults.
type persisted struct {
	Settings       json.RawMessage `json:"settings"`
	CurrentBookID  *int64          `json:"currentBookId"`
	CurrentChapter int             `json:"currentChapter"`
	ScrollPosition int             `json:"scrollPosition"`
}

// Store is the preference store. All methods are safe for concurrent use.
// Subscribers run on the mutating goroutine in mutation order; they may read
// the store but must not mutate it.
type Store struct {
	kv     store.KV
	logger *slog.Logger

	// writeMu serializes mutations together with their notifications.
	writeMu sync.Mutex
	mu      sync.Mutex
	state   Snapshot

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New loads the persisted preferences from kv. Missing or unreadable data
// yields defaults; out-of-range values are clamped.
func New(kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		kv:     kv,
		logger: logger,
		subs:   make(map[int]func(Change)),
	}
	s.state = s.load()
	return s
}

func (s *Store) load() Snapshot {
	snap := Snapshot{Settings: domain.DefaultReaderSettings()}

	data, err := s.kv.Get(context.Background(), store.KeyReaderSettings)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to read reader settings, using defaults", "error", err)
		}
		return snap
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("reader settings are corrupt, using defaults", "error", err)
		return snap
	}

	if len(p.Settings) > 0 {
		settings := domain.DefaultReaderSettings()
		if err := json.Unmarshal(p.Settings, &settings); err != nil {
			s.logger.Warn("reader display settings are corrupt, using defaults", "error", err)
			settings = domain.DefaultReaderSettings()
		}
		snap.Settings = settings.Normalize()
	}

	snap.Position = domain.ReadingPosition{
		BookID:       p.CurrentBookID,
		ChapterIndex: max(p.CurrentChapter, 0),
		ScrollOffset: max(p.ScrollPosition, 0),
	}
	return snap
}

// Get returns the current settings and position.
func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Settings returns the current display settings.
func (s *Store) Settings() domain.ReaderSettings {
	return s.Get().Settings
}

// Position returns the current reading position.
func (s *Store) Position() domain.ReadingPosition {
	return s.Get().Position
}

// UpdateSettings merges patch into the settings. Numbers are clamped and
// unknown enum values are ignored; nothing is rejected.
func (s *Store) UpdateSettings(patch domain.SettingsPatch) domain.ReaderSettings {
	snap := s.mutate(ChangeSettings, func(st *Snapshot) {
		st.Settings = st.Settings.Apply(patch)
	})
	return snap.Settings
}

// ToggleTheme advances light, dark, sepia and back to light.
func (s *Store) ToggleTheme() domain.Theme {
	snap := s.mutate(ChangeSettings, func(st *Snapshot) {
		st.Settings.Theme = st.Settings.Theme.Next()
	})
	return snap.Settings.Theme
}

// AdjustFontSize changes the font size relative to the current clamped value.
func (s *Store) AdjustFontSize(delta int) int {
	snap := s.mutate(ChangeSettings, func(st *Snapshot) {
		st.Settings.FontSize = domain.ClampFontSize(st.Settings.FontSize + delta)
	})
	return snap.Settings.FontSize
}

// AdjustLineHeight changes the line height relative to the current value.
func (s *Store) AdjustLineHeight(delta float64) float64 {
	snap := s.mutate(ChangeSettings, func(st *Snapshot) {
		st.Settings.LineHeight = domain.StepLineHeight(st.Settings.LineHeight, delta)
	})
	return snap.Settings.LineHeight
}

// SetCurrentBook replaces the position with bookID at chapter, scroll zero.
func (s *Store) SetCurrentBook(bookID int64, chapter int) {
	s.mutate(ChangePosition, func(st *Snapshot) {
		st.Position = domain.ReadingPosition{
			BookID:       &bookID,
			ChapterIndex: max(chapter, 0),
		}
	})
}

// SetChapter moves to chapter index and zeroes the scroll offset. The index
// is not checked against a chapter count; callers clamp.
func (s *Store) SetChapter(index int) {
	s.mutate(ChangePosition, func(st *Snapshot) {
		st.Position.ChapterIndex = max(index, 0)
		st.Position.ScrollOffset = 0
	})
}

// SetScrollOffset records the scroll offset within the current chapter.
func (s *Store) SetScrollOffset(offset int) {
	s.mutate(ChangePosition, func(st *Snapshot) {
		st.Position.ScrollOffset = max(offset, 0)
	})
}

// Reset clears the reading position. Settings are kept.
func (s *Store) Reset() {
	s.mutate(ChangePosition, func(st *Snapshot) {
		st.Position = domain.ReadingPosition{}
	})
}

// Subscribe registers fn for change notifications. The returned function
// removes it.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) mutate(kind ChangeKind, fn func(*Snapshot)) Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	s.persist(snap)
	s.mu.Unlock()

	s.notify(Change{Kind: kind, Snapshot: snap})
	return snap
}

// persist writes snap to the KV. Failures are logged and otherwise ignored:
// the in-memory state remains authoritative.
func (s *Store) persist(snap Snapshot) {
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		s.logger.Warn("failed to encode reader settings", "error", err)
		return
	}
	data, err := json.Marshal(persisted{
		Settings:       settings,
		CurrentBookID:  snap.Position.BookID,
		CurrentChapter: snap.Position.ChapterIndex,
		ScrollPosition: snap.Position.ScrollOffset,
	})
	if err != nil {
		s.logger.Warn("failed to encode reader settings", "error", err)
		return
	}
	if err := s.kv.Set(context.Background(), store.KeyReaderSettings, data); err != nil {
		s.logger.Warn("failed to persist reader settings", "error", err)
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (snap Snapshot) clone() Snapshot {
	if snap.Position.BookID != nil {
		id := *snap.Position.BookID
		snap.Position.BookID = &id
	}
	return snap
}
