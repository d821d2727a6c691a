package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/legado-reader/legado-client/internal/domain"
)

func bookPath(id int64) string {
	return "/api/v1/books/" + strconv.FormatInt(id, 10)
}

// ListBooks returns the bookshelf.
func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return get[[]domain.Book](ctx, c, "/api/v1/books", nil).Unwrap()
}

// GetBook returns one book.
func (c *Client) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	return get[*domain.Book](ctx, c, bookPath(id), nil).Unwrap()
}

// AddBook puts a book on the shelf.
func (c *Client) AddBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	return send[*domain.Book](ctx, c, http.MethodPost, "/api/v1/books", nil, book).Unwrap()
}

// DeleteBook removes a book from the shelf.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return send[json.RawMessage](ctx, c, http.MethodDelete, bookPath(id), nil, nil).Err
}

// ListChapters returns the table of contents of a book.
func (c *Client) ListChapters(ctx context.Context, bookID int64) ([]domain.BookChapter, error) {
	return get[[]domain.BookChapter](ctx, c, bookPath(bookID)+"/chapters", nil).Unwrap()
}

// ChapterContent returns the text of one chapter.
func (c *Client) ChapterContent(ctx context.Context, bookID int64, index int) (string, error) {
	path := bookPath(bookID) + "/chapters/" + strconv.Itoa(index) + "/content"
	return get[string](ctx, c, path, nil).Unwrap()
}

// UpdateProgress stores the reading position of a book on the server.
func (c *Client) UpdateProgress(ctx context.Context, bookID int64, chapterIndex, chapterPos int) error {
	q := url.Values{}
	q.Set("chapterIndex", strconv.Itoa(chapterIndex))
	q.Set("chapterPos", strconv.Itoa(chapterPos))
	return send[json.RawMessage](ctx, c, http.MethodPut, bookPath(bookID)+"/progress", q, nil).Err
}

// SearchBooks runs a cross-source search on the server.
func (c *Client) SearchBooks(ctx context.Context, keyword string) ([]domain.SearchResult, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	return get[[]domain.SearchResult](ctx, c, "/api/v1/books/search", q).Unwrap()
}

// AddBookFromSource adds a search hit to the shelf.
func (c *Client) AddBookFromSource(ctx context.Context, bookURL, sourceURL string) (*domain.Book, error) {
	q := url.Values{}
	q.Set("bookUrl", bookURL)
	q.Set("sourceUrl", sourceURL)
	return send[*domain.Book](ctx, c, http.MethodPost, "/api/v1/books/from-source", q, nil).Unwrap()
}
