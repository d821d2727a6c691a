package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/legado-reader/legado-client/internal/domain"
)

func sourcePath(id int64) string {
	return "/api/v1/sources/" + strconv.FormatInt(id, 10)
}

// ListSources returns every configured book source.
func (c *Client) ListSources(ctx context.Context) ([]domain.BookSource, error) {
	return get[[]domain.BookSource](ctx, c, "/api/v1/sources", nil).Unwrap()
}

// GetSource returns one book source.
func (c *Client) GetSource(ctx context.Context, id int64) (*domain.BookSource, error) {
	return get[*domain.BookSource](ctx, c, sourcePath(id), nil).Unwrap()
}

// CreateSource saves a new book source.
func (c *Client) CreateSource(ctx context.Context, src *domain.BookSource) (*domain.BookSource, error) {
	return send[*domain.BookSource](ctx, c, http.MethodPost, "/api/v1/sources", nil, src).Unwrap()
}

// UpdateSource replaces an existing book source.
func (c *Client) UpdateSource(ctx context.Context, id int64, src *domain.BookSource) (*domain.BookSource, error) {
	return send[*domain.BookSource](ctx, c, http.MethodPut, sourcePath(id), nil, src).Unwrap()
}

// DeleteSource removes a book source.
func (c *Client) DeleteSource(ctx context.Context, id int64) error {
	return send[json.RawMessage](ctx, c, http.MethodDelete, sourcePath(id), nil, nil).Err
}

// ToggleSource enables or disables a book source.
func (c *Client) ToggleSource(ctx context.Context, id int64, enabled bool) error {
	q := url.Values{}
	q.Set("enabled", strconv.FormatBool(enabled))
	return send[json.RawMessage](ctx, c, http.MethodPut, sourcePath(id)+"/toggle", q, nil).Err
}

// TestSource asks the server to exercise a source and returns its verdict.
func (c *Client) TestSource(ctx context.Context, id int64) (string, error) {
	return send[string](ctx, c, http.MethodPost, sourcePath(id)+"/test", nil, nil).Unwrap()
}

// ImportSources uploads a JSON array of sources. The payload is sent as-is
// so exported files round-trip without loss.
func (c *Client) ImportSources(ctx context.Context, payload json.RawMessage) ([]domain.BookSource, error) {
	return send[[]domain.BookSource](ctx, c, http.MethodPost, "/api/v1/sources/batch", nil, payload).Unwrap()
}

// ImportSourcesFromURL makes the server fetch and import a source list.
// It returns the number of imported sources.
func (c *Client) ImportSourcesFromURL(ctx context.Context, sourceListURL string) (int, error) {
	q := url.Values{}
	q.Set("url", sourceListURL)
	return send[int](ctx, c, http.MethodPost, "/api/v1/sources/import/url", q, nil).Unwrap()
}
