// Package progress pushes the local reading position to the server at a
// bounded cadence. Bursts of position changes collapse into one write of the
// latest position; failures are logged and dropped.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/prefs"
)

// DefaultDelay is the quiet period before a position is written.
const DefaultDelay = 5 * time.Second

// Writer stores a reading position on the server.
type Writer interface {
	UpdateProgress(ctx context.Context, bookID int64, chapterIndex, chapterPos int) error
}

// Position is what gets written: a book and where in it the reader is.
type Position struct {
	BookID       int64
	ChapterIndex int
	ScrollOffset int
}

// Synchronizer debounces position changes into progress writes.
type Synchronizer struct {
	writer Writer
	delay  time.Duration
	logger *slog.Logger

	// ctx bounds in-flight writes; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	// writes counts scheduled tasks until they run or are canceled.
	writes sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	pending     *Task
	pendingPos  Position
	unsubscribe func()
}

// New creates a synchronizer. A non-positive delay uses DefaultDelay.
func New(writer Writer, delay time.Duration, logger *slog.Logger) *Synchronizer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		writer: writer,
		delay:  delay,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Attach subscribes to position changes of store. Attaching again replaces
// the previous subscription.
func (s *Synchronizer) Attach(store *prefs.Store) {
	unsubscribe := store.Subscribe(func(c prefs.Change) {
		if c.Kind != prefs.ChangePosition {
			return
		}
		s.Observe(c.Snapshot.Position)
	})

	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Observe schedules a write of pos. Positions without a book are ignored.
func (s *Synchronizer) Observe(pos domain.ReadingPosition) {
	if pos.BookID == nil {
		return
	}
	s.Schedule(Position{
		BookID:       *pos.BookID,
		ChapterIndex: pos.ChapterIndex,
		ScrollOffset: pos.ScrollOffset,
	})
}

// Schedule (re)starts the timer for pos, superseding any pending write of
// the same book. A pending write for a different book is sent at once so
// switching books does not lose the old book's position.
func (s *Synchronizer) Schedule(pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if prev := s.pending; prev != nil {
		if s.pendingPos.BookID != pos.BookID {
			go prev.RunNow()
		} else {
			s.cancelTask(prev)
		}
	}

	s.writes.Add(1)
	s.pendingPos = pos
	s.pending = Schedule(s.delay, func() {
		defer s.writes.Done()
		s.write(pos)
	})
}

// cancelTask cancels t and releases its slot in writes. Callers hold mu.
func (s *Synchronizer) cancelTask(t *Task) bool {
	if !t.Cancel() {
		return false
	}
	s.writes.Done()
	return true
}

// Pending reports whether a write is waiting for its timer.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil && s.pending.Pending()
}

// Stop cancels the pending write and detaches from the store. Use it when
// the reader closes: a stale position must not overwrite a newer one
// reached elsewhere.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.pending != nil {
		if s.cancelTask(s.pending) {
			s.logger.Debug("pending progress write canceled", "book_id", s.pendingPos.BookID)
		}
		s.pending = nil
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Flush sends the pending position now, if any, and waits for it.
func (s *Synchronizer) Flush(ctx context.Context) {
	s.mu.Lock()
	task := s.pending
	s.pending = nil
	s.mu.Unlock()

	if task == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		task.RunNow()
		<-task.Done()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("progress flush abandoned", "error", ctx.Err())
	}
}

// Close stops the synchronizer and waits for in-flight writes, which are
// canceled when ctx ends.
func (s *Synchronizer) Close(ctx context.Context) {
	s.Stop()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	s.cancel()
}

func (s *Synchronizer) write(pos Position) {
	start := time.Now()
	err := s.writer.UpdateProgress(s.ctx, pos.BookID, pos.ChapterIndex, pos.ScrollOffset)
	if err != nil {
		s.logger.Warn("progress sync failed",
			"book_id", pos.BookID,
			"chapter", pos.ChapterIndex,
			"error", err,
		)
		return
	}
	s.logger.Debug("progress synced",
		"book_id", pos.BookID,
		"chapter", pos.ChapterIndex,
		"offset", pos.ScrollOffset,
		"duration", time.Since(start),
	)
}
