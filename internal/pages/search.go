package pages

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
)

// SearchView is what the search page renders.
type SearchView struct {
	Keyword   string                `json:"keyword"`
	Results   []domain.SearchResult `json:"results"`
	Submitted bool                  `json:"submitted"`
	Notice    *Notice               `json:"notice,omitempty"`
}

// Search runs cross-source searches and adds hits to the shelf.
type Search struct {
	noticeBoard

	api    BooksAPI
	logger *slog.Logger

	mu        sync.RWMutex
	keyword   string
	results   []domain.SearchResult
	submitted bool
}

// NewSearch creates the search page.
func NewSearch(api BooksAPI, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Search{api: api, logger: logger}
}

// Submit searches for keyword. A blank keyword clears the results without
// asking the server.
func (p *Search) Submit(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		p.mu.Lock()
		p.keyword = ""
		p.results = nil
		p.submitted = false
		p.mu.Unlock()
		return nil
	}

	results, err := p.api.SearchBooks(ctx, keyword)
	if err != nil {
		return p.fail(err)
	}

	p.mu.Lock()
	p.keyword = keyword
	p.results = results
	p.submitted = true
	p.mu.Unlock()
	p.DismissNotice()

	p.logger.Debug("search completed", "keyword", keyword, "results", len(results))
	return nil
}

// Add puts the result at index on the bookshelf.
func (p *Search) Add(ctx context.Context, index int) (*domain.Book, error) {
	p.mu.RLock()
	if index < 0 || index >= len(p.results) {
		p.mu.RUnlock()
		return nil, p.fail(domainerrors.Validationf("no search result at position %d", index))
	}
	hit := p.results[index]
	p.mu.RUnlock()

	return p.AddResult(ctx, hit)
}

// AddResult puts hit on the bookshelf.
func (p *Search) AddResult(ctx context.Context, hit domain.SearchResult) (*domain.Book, error) {
	if hit.BookURL == "" || hit.SourceURL == "" {
		return nil, p.fail(domainerrors.Validation("search result has no book or source url"))
	}
	book, err := p.api.AddBookFromSource(ctx, hit.BookURL, hit.SourceURL)
	if err != nil {
		return nil, p.fail(err)
	}
	if book == nil {
		book = &domain.Book{Name: hit.Name, Author: hit.Author, BookURL: hit.BookURL, Origin: hit.SourceURL}
	}
	p.inform("added to bookshelf: " + book.Name)
	p.logger.Info("book added from search", "book_id", book.ID, "source", hit.SourceURL)
	return book, nil
}

// View returns the current search state.
func (p *Search) View() SearchView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	results := slices.Clone(p.results)
	if results == nil {
		results = []domain.SearchResult{}
	}
	return SearchView{
		Keyword:   p.keyword,
		Results:   results,
		Submitted: p.submitted,
		Notice:    p.Notice(),
	}
}
