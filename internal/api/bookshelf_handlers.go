package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/pages"
)

func (s *Server) registerBookshelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBookshelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/bookshelf",
		Summary:     "Get bookshelf",
		Description: "Reloads the bookshelf from the server and filters it by keyword",
		Tags:        []string{"Bookshelf"},
	}, s.handleGetBookshelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteShelfBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pages/bookshelf/{id}",
		Summary:     "Remove book",
		Description: "Removes a book from the bookshelf",
		Tags:        []string{"Bookshelf"},
	}, s.handleDeleteShelfBook)
}

// === DTOs ===

// GetBookshelfInput contains parameters for the bookshelf page.
type GetBookshelfInput struct {
	Keyword string `query:"keyword" doc:"Filter by title or author"`
}

// BookshelfOutput wraps the bookshelf view for Huma.
type BookshelfOutput struct {
	Body pages.BookshelfView
}

// DeleteShelfBookInput contains parameters for removing a book.
type DeleteShelfBookInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

// === Handlers ===

func (s *Server) handleGetBookshelf(ctx context.Context, input *GetBookshelfInput) (*BookshelfOutput, error) {
	shelf := s.services.Bookshelf
	if err := shelf.Load(ctx); err != nil {
		return nil, err
	}
	if err := shelf.Filter(ctx, input.Keyword); err != nil {
		return nil, err
	}
	return &BookshelfOutput{Body: shelf.View()}, nil
}

func (s *Server) handleDeleteShelfBook(ctx context.Context, input *DeleteShelfBookInput) (*BookshelfOutput, error) {
	shelf := s.services.Bookshelf
	if err := shelf.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &BookshelfOutput{Body: shelf.View()}, nil
}
