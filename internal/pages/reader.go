package pages

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/legado-reader/legado-client/internal/content"
	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/progress"
)

// ReaderView is what the reader renders.
type ReaderView struct {
	Book         *domain.Book          `json:"book,omitempty"`
	ChapterCount int                   `json:"chapterCount"`
	ChapterIndex int                   `json:"chapterIndex"`
	ChapterTitle string                `json:"chapterTitle,omitempty"`
	Chapter      *content.Chapter      `json:"chapter,omitempty"`
	Pages        []content.Page        `json:"pages,omitempty"`
	ScrollOffset int                   `json:"scrollOffset"`
	HasPrev      bool                  `json:"hasPrev"`
	HasNext      bool                  `json:"hasNext"`
	Settings     domain.ReaderSettings `json:"settings"`
	Notice       *Notice               `json:"notice,omitempty"`
}

// ReaderOptions configures the reader page.
type ReaderOptions struct {
	// FlushOnClose sends a pending progress write when the reader closes
	// instead of dropping it.
	FlushOnClose bool
	Viewport     content.Viewport
}

// Reader shows one chapter of a book at a time.
type Reader struct {
	noticeBoard

	api    BooksAPI
	prefs  *prefs.Store
	sync   *progress.Synchronizer
	opts   ReaderOptions
	logger *slog.Logger

	mu       sync.RWMutex
	book     *domain.Book
	chapters []domain.BookChapter
	index    int
	chapter  *content.Chapter
	pages    []content.Page
}

// NewReader creates the reader page.
func NewReader(api BooksAPI, store *prefs.Store, synchronizer *progress.Synchronizer, opts ReaderOptions, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = content.DefaultViewport
	}
	return &Reader{
		api:    api,
		prefs:  store,
		sync:   synchronizer,
		opts:   opts,
		logger: logger,
	}
}

// Open loads a book and its table of contents, restores the reading
// position and loads that chapter. The local position wins when it belongs
// to the same book; otherwise the server's last position is used.
func (r *Reader) Open(ctx context.Context, bookID int64) error {
	var (
		book     *domain.Book
		chapters []domain.BookChapter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = r.api.GetBook(gctx, bookID)
		return err
	})
	g.Go(func() error {
		var err error
		chapters, err = r.api.ListChapters(gctx, bookID)
		return err
	})
	if err := g.Wait(); err != nil {
		return r.fail(err)
	}
	if book == nil {
		return r.fail(domainerrors.NotFoundf("book %d not found", bookID))
	}

	chapterIndex, scroll := book.DurChapterIndex, book.DurChapterPos
	if pos := r.prefs.Position(); pos.SameBook(bookID) {
		chapterIndex, scroll = pos.ChapterIndex, pos.ScrollOffset
	}
	chapterIndex = domain.ClampChapter(chapterIndex, len(chapters))

	ch, pages, err := r.fetchChapter(ctx, bookID, chapters, chapterIndex)
	if err != nil {
		return r.fail(err)
	}

	r.mu.Lock()
	r.book = book
	r.chapters = chapters
	r.index = chapterIndex
	r.chapter = ch
	r.pages = pages
	r.mu.Unlock()

	if r.sync != nil {
		r.sync.Attach(r.prefs)
	}
	r.prefs.SetCurrentBook(bookID, chapterIndex)
	if scroll > 0 {
		r.prefs.SetScrollOffset(scroll)
	}
	r.DismissNotice()

	r.logger.Debug("book opened", "book_id", bookID, "chapter", chapterIndex, "chapters", len(chapters))
	return nil
}

// GoTo loads chapter index, clamped to the table of contents.
func (r *Reader) GoTo(ctx context.Context, index int) error {
	r.mu.RLock()
	book, chapters := r.book, r.chapters
	r.mu.RUnlock()
	if book == nil {
		return r.fail(domainerrors.Validation("no book is open"))
	}

	index = domain.ClampChapter(index, len(chapters))
	ch, pages, err := r.fetchChapter(ctx, book.ID, chapters, index)
	if err != nil {
		return r.fail(err)
	}

	r.mu.Lock()
	r.index = index
	r.chapter = ch
	r.pages = pages
	r.mu.Unlock()

	r.prefs.SetChapter(index)
	return nil
}

// Next moves to the following chapter. On the last chapter it stays put.
func (r *Reader) Next(ctx context.Context) error {
	return r.GoTo(ctx, r.chapterIndex()+1)
}

// Prev moves to the previous chapter. On the first chapter it stays put.
func (r *Reader) Prev(ctx context.Context) error {
	return r.GoTo(ctx, r.chapterIndex()-1)
}

// Scroll records the scroll offset within the current chapter.
func (r *Reader) Scroll(offset int) {
	r.prefs.SetScrollOffset(offset)
}

// ToggleTheme advances the reader theme.
func (r *Reader) ToggleTheme() domain.Theme {
	return r.prefs.ToggleTheme()
}

// AdjustFontSize changes the font size by steps of FontSizeStep.
func (r *Reader) AdjustFontSize(steps int) int {
	size := r.prefs.AdjustFontSize(steps * domain.FontSizeStep)
	r.repaginate()
	return size
}

// AdjustLineHeight changes the line height by steps of LineHeightStep.
func (r *Reader) AdjustLineHeight(steps int) float64 {
	lh := r.prefs.AdjustLineHeight(float64(steps) * domain.LineHeightStep)
	r.repaginate()
	return lh
}

// SetPageMode switches between scrolling and pagination.
func (r *Reader) SetPageMode(mode domain.PageMode) domain.PageMode {
	s := r.prefs.UpdateSettings(domain.SettingsPatch{PageMode: &mode})
	r.repaginate()
	return s.PageMode
}

// Close leaves the reader. The pending progress write is dropped unless
// FlushOnClose is set.
func (r *Reader) Close(ctx context.Context) {
	if r.sync != nil {
		if r.opts.FlushOnClose {
			r.sync.Flush(ctx)
		}
		r.sync.Stop()
	}

	r.mu.Lock()
	r.book = nil
	r.chapters = nil
	r.index = 0
	r.chapter = nil
	r.pages = nil
	r.mu.Unlock()
	r.DismissNotice()
}

// IsOpen reports whether a book is loaded.
func (r *Reader) IsOpen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.book != nil
}

// View returns the current reader state.
func (r *Reader) View() ReaderView {
	snap := r.prefs.Get()

	r.mu.RLock()
	defer r.mu.RUnlock()

	view := ReaderView{
		ChapterCount: len(r.chapters),
		ChapterIndex: r.index,
		Settings:     snap.Settings,
		Notice:       r.Notice(),
	}
	if r.book == nil {
		return view
	}

	book := *r.book
	view.Book = &book
	view.HasPrev = r.index > 0
	view.HasNext = r.index < len(r.chapters)-1
	if r.index < len(r.chapters) {
		view.ChapterTitle = r.chapters[r.index].Title
	}
	if r.chapter != nil {
		ch := *r.chapter
		view.Chapter = &ch
	}
	view.Pages = r.pages
	if snap.Position.SameBook(book.ID) {
		view.ScrollOffset = snap.Position.ScrollOffset
	}
	return view
}

func (r *Reader) chapterIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

func (r *Reader) fetchChapter(ctx context.Context, bookID int64, chapters []domain.BookChapter, index int) (*content.Chapter, []content.Page, error) {
	if len(chapters) == 0 {
		ch := content.Render("", "")
		return &ch, nil, nil
	}

	meta := chapters[index]
	raw, err := r.api.ChapterContent(ctx, bookID, meta.ChapterIndex)
	if err != nil {
		return nil, nil, err
	}
	ch := content.Render(meta.Title, raw)
	return &ch, r.paginate(ch), nil
}

// paginate splits ch into pages when the reader is in pagination mode.
func (r *Reader) paginate(ch content.Chapter) []content.Page {
	s := r.prefs.Settings()
	if s.PageMode != domain.PageModePagination {
		return nil
	}
	return content.Paginate(ch.Paragraphs, r.opts.Viewport, s.FontSize, s.LineHeight)
}

func (r *Reader) repaginate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chapter == nil {
		return
	}
	r.pages = r.paginate(*r.chapter)
}
