package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/pages"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/search",
		Summary:     "Search books",
		Description: "Searches every enabled source. A blank keyword clears the results without a server call",
		Tags:        []string{"Search"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "addSearchResult",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/search/add",
		Summary:     "Add search result",
		Description: "Adds a search result to the bookshelf",
		Tags:        []string{"Search"},
	}, s.handleAddSearchResult)
}

// === DTOs ===

// SearchBooksInput contains parameters for searching.
type SearchBooksInput struct {
	Keyword string `query:"keyword" doc:"Title or author to look for"`
}

// SearchOutput wraps the search view for Huma.
type SearchOutput struct {
	Body pages.SearchView
}

// AddSearchResultRequest identifies a result to add. Index refers to the
// last search; otherwise bookUrl and sourceUrl are used as given.
type AddSearchResultRequest struct {
	Index     *int   `json:"index,omitempty" minimum:"0" doc:"Position in the last results"`
	BookURL   string `json:"bookUrl,omitempty" doc:"Book URL on the source"`
	SourceURL string `json:"sourceUrl,omitempty" doc:"Source URL"`
	Name      string `json:"name,omitempty" doc:"Book name"`
	Author    string `json:"author,omitempty" doc:"Book author"`
}

// AddSearchResultInput wraps the add request for Huma.
type AddSearchResultInput struct {
	Body AddSearchResultRequest
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body domain.Book
}

// === Handlers ===

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchOutput, error) {
	page := s.services.Search
	if err := page.Submit(ctx, input.Keyword); err != nil {
		return nil, err
	}
	return &SearchOutput{Body: page.View()}, nil
}

func (s *Server) handleAddSearchResult(ctx context.Context, input *AddSearchResultInput) (*BookOutput, error) {
	page := s.services.Search
	req := input.Body

	var (
		book *domain.Book
		err  error
	)
	if req.Index != nil {
		book, err = page.Add(ctx, *req.Index)
	} else {
		book, err = page.AddResult(ctx, domain.SearchResult{
			Name:      req.Name,
			Author:    req.Author,
			BookURL:   req.BookURL,
			SourceURL: req.SourceURL,
		})
	}
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: *book}, nil
}
