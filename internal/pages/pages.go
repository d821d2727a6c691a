// Package pages holds the view models of the reader client. Each page reads
// from the stores and the remote layer and dispatches mutations to them.
// Failures surface as a dismissible Notice and leave the previous view as
// it was.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/remote"
)

// BooksAPI is the book part of the remote layer.
type BooksAPI interface {
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	ListChapters(ctx context.Context, bookID int64) ([]domain.BookChapter, error)
	ChapterContent(ctx context.Context, bookID int64, index int) (string, error)
	SearchBooks(ctx context.Context, keyword string) ([]domain.SearchResult, error)
	AddBookFromSource(ctx context.Context, bookURL, sourceURL string) (*domain.Book, error)
}

// SourcesAPI is the book source part of the remote layer.
type SourcesAPI interface {
	ListSources(ctx context.Context) ([]domain.BookSource, error)
	GetSource(ctx context.Context, id int64) (*domain.BookSource, error)
	CreateSource(ctx context.Context, src *domain.BookSource) (*domain.BookSource, error)
	UpdateSource(ctx context.Context, id int64, src *domain.BookSource) (*domain.BookSource, error)
	DeleteSource(ctx context.Context, id int64) error
	ToggleSource(ctx context.Context, id int64, enabled bool) error
	TestSource(ctx context.Context, id int64) (string, error)
	ImportSources(ctx context.Context, payload json.RawMessage) ([]domain.BookSource, error)
	ImportSourcesFromURL(ctx context.Context, sourceListURL string) (int, error)
}

var (
	_ BooksAPI   = (*remote.Client)(nil)
	_ SourcesAPI = (*remote.Client)(nil)
)

// NoticeLevel tells the view how to style a notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeError NoticeLevel = "error"
	NoticeInfo  NoticeLevel = "info"
)

// Notice is a dismissible message shown above a page.
type Notice struct {
	Level   NoticeLevel       `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NoticeFrom turns an error into a notice. Remote failures show the server
// message, validation failures carry their per-field messages.
func NoticeFrom(err error) *Notice {
	if err == nil {
		return nil
	}

	var re *remote.RemoteError
	if errors.As(err, &re) {
		return &Notice{Level: NoticeError, Message: re.Message}
	}

	var de *domainerrors.Error
	if errors.As(err, &de) {
		return &Notice{Level: NoticeError, Message: de.Message, Fields: de.Fields}
	}

	return &Notice{Level: NoticeError, Message: err.Error()}
}

// noticeBoard holds the current notice of a page.
type noticeBoard struct {
	noticeMu sync.Mutex
	notice   *Notice
}

// fail records err as the page notice and returns it.
func (b *noticeBoard) fail(err error) error {
	n := NoticeFrom(err)
	b.noticeMu.Lock()
	b.notice = n
	b.noticeMu.Unlock()
	return err
}

func (b *noticeBoard) inform(msg string) {
	b.noticeMu.Lock()
	b.notice = &Notice{Level: NoticeInfo, Message: msg}
	b.noticeMu.Unlock()
}

// Notice returns the current notice or nil.
func (b *noticeBoard) Notice() *Notice {
	b.noticeMu.Lock()
	defer b.noticeMu.Unlock()
	if b.notice == nil {
		return nil
	}
	n := *b.notice
	return &n
}

// DismissNotice clears the notice.
func (b *noticeBoard) DismissNotice() {
	b.noticeMu.Lock()
	b.notice = nil
	b.noticeMu.Unlock()
}
