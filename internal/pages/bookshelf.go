package pages

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/media/images"
	"github.com/legado-reader/legado-client/internal/search"
)

// BookshelfView is what the bookshelf renders.
type BookshelfView struct {
	Books []domain.Book `json:"books"`
	// Placeholders maps cover url to BlurHash.
	Placeholders map[string]string `json:"placeholders,omitempty"`
	Keyword      string            `json:"keyword,omitempty"`
	Total        int               `json:"total"`
	Loaded       bool              `json:"loaded"`
	Notice       *Notice           `json:"notice,omitempty"`
}

// Bookshelf lists the user's books.
type Bookshelf struct {
	noticeBoard

	api          BooksAPI
	index        *search.Index
	placeholders *images.Placeholders
	logger       *slog.Logger

	mu      sync.RWMutex
	books   []domain.Book
	visible []domain.Book
	covers  map[string]string
	keyword string
	loaded  bool
}

// NewBookshelf creates the bookshelf page. placeholders may be nil.
func NewBookshelf(api BooksAPI, index *search.Index, placeholders *images.Placeholders, logger *slog.Logger) *Bookshelf {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bookshelf{
		api:          api,
		index:        index,
		placeholders: placeholders,
		logger:       logger,
		covers:       map[string]string{},
	}
}

// Load fetches the bookshelf and reapplies the current keyword.
func (p *Bookshelf) Load(ctx context.Context) error {
	books, err := p.api.ListBooks(ctx)
	if err != nil {
		return p.fail(err)
	}
	if err := p.index.Replace(search.KindBook, search.BookDocuments(books)); err != nil {
		p.logger.Warn("failed to index bookshelf", "error", err)
	}

	var covers map[string]string
	if p.placeholders != nil {
		urls := make([]string, 0, len(books))
		for i := range books {
			if cover := books[i].DisplayCover(); cover != "" {
				urls = append(urls, cover)
			}
		}
		covers = p.placeholders.Many(ctx, urls)
	}

	p.mu.Lock()
	p.books = books
	p.loaded = true
	if covers != nil {
		p.covers = covers
	}
	keyword := p.keyword
	p.mu.Unlock()

	return p.Filter(ctx, keyword)
}

// Filter narrows the visible books to those matching keyword. A blank
// keyword shows everything.
func (p *Bookshelf) Filter(ctx context.Context, keyword string) error {
	p.mu.RLock()
	books := p.books
	p.mu.RUnlock()

	visible := books
	if keyword != "" {
		ids, err := p.index.Filter(ctx, search.Params{Kind: search.KindBook, Keyword: keyword})
		if err != nil {
			return p.fail(err)
		}
		visible = selectByID(books, ids, func(b domain.Book) int64 { return b.ID })
	}

	p.mu.Lock()
	p.keyword = keyword
	p.visible = visible
	p.mu.Unlock()
	return nil
}

// Delete removes a book from the shelf.
func (p *Bookshelf) Delete(ctx context.Context, id int64) error {
	if err := p.api.DeleteBook(ctx, id); err != nil {
		return p.fail(err)
	}

	p.mu.Lock()
	p.books = slices.DeleteFunc(slices.Clone(p.books), func(b domain.Book) bool { return b.ID == id })
	p.visible = slices.DeleteFunc(slices.Clone(p.visible), func(b domain.Book) bool { return b.ID == id })
	books := p.books
	p.mu.Unlock()

	if err := p.index.Replace(search.KindBook, search.BookDocuments(books)); err != nil {
		p.logger.Warn("failed to index bookshelf", "error", err)
	}
	p.logger.Info("book removed from shelf", "book_id", id)
	return nil
}

// Book returns a loaded book by id.
func (p *Bookshelf) Book(id int64) (domain.Book, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := slices.IndexFunc(p.books, func(b domain.Book) bool { return b.ID == id })
	if i < 0 {
		return domain.Book{}, false
	}
	return p.books[i], true
}

// View returns the current bookshelf.
func (p *Bookshelf) View() BookshelfView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	view := BookshelfView{
		Books:   slices.Clone(p.visible),
		Keyword: p.keyword,
		Total:   len(p.books),
		Loaded:  p.loaded,
		Notice:  p.Notice(),
	}
	if view.Books == nil {
		view.Books = []domain.Book{}
	}
	if len(p.covers) > 0 {
		view.Placeholders = make(map[string]string, len(p.covers))
		for _, b := range view.Books {
			if hash, ok := p.covers[b.DisplayCover()]; ok {
				view.Placeholders[b.DisplayCover()] = hash
			}
		}
	}
	return view
}

// selectByID returns the items whose id is in ids, keeping ids order.
func selectByID[T any](items []T, ids []string, idOf func(T) int64) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[strconv.FormatInt(idOf(it), 10)] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}
