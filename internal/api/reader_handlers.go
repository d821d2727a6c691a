package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/pages"
)

func (s *Server) registerReaderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getReader",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/reader",
		Summary:     "Get reader",
		Description: "Returns the reader state without loading anything",
		Tags:        []string{"Reader"},
	}, s.handleGetReader)

	huma.Register(s.api, huma.Operation{
		OperationID: "openBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/reader/{bookId}",
		Summary:     "Open book",
		Description: "Opens a book at its last reading position, or returns it if already open",
		Tags:        []string{"Reader"},
	}, s.handleOpenBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigateChapter",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/reader/{bookId}/chapter",
		Summary:     "Change chapter",
		Description: "Moves to the next, previous or a given chapter, clamped to the table of contents",
		Tags:        []string{"Reader"},
	}, s.handleNavigateChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "scrollReader",
		Method:      http.MethodPut,
		Path:        "/api/v1/pages/reader/scroll",
		Summary:     "Record scroll",
		Description: "Records the scroll offset within the current chapter",
		Tags:        []string{"Reader"},
	}, s.handleScrollReader)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjustReaderDisplay",
		Method:      http.MethodPatch,
		Path:        "/api/v1/pages/reader/display",
		Summary:     "Adjust display",
		Description: "Steps the font size and line height, switches page mode or toggles the theme",
		Tags:        []string{"Reader"},
	}, s.handleAdjustDisplay)

	huma.Register(s.api, huma.Operation{
		OperationID: "closeReader",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pages/reader",
		Summary:     "Close reader",
		Description: "Closes the book and stops progress syncing",
		Tags:        []string{"Reader"},
	}, s.handleCloseReader)
}

// === DTOs ===

// ReaderOutput wraps the reader view for Huma.
type ReaderOutput struct {
	Body pages.ReaderView
}

// OpenBookInput contains parameters for opening a book.
type OpenBookInput struct {
	BookID int64 `path:"bookId" doc:"Book ID"`
}

// Chapter navigation actions.
const (
	ChapterNext = "next"
	ChapterPrev = "prev"
	ChapterGoTo = "goto"
)

// NavigateChapterRequest is the request body for changing chapter.
type NavigateChapterRequest struct {
	Action string `json:"action" enum:"next,prev,goto" doc:"Navigation action"`
	Index  int    `json:"index,omitempty" doc:"Target chapter for goto"`
}

// NavigateChapterInput wraps the navigation request for Huma.
type NavigateChapterInput struct {
	BookID int64 `path:"bookId" doc:"Book ID"`
	Body   NavigateChapterRequest
}

// ScrollRequest is the request body for recording the scroll offset.
type ScrollRequest struct {
	Offset int `json:"offset" minimum:"0" doc:"Scroll offset in pixels"`
}

// ScrollInput wraps the scroll request for Huma.
type ScrollInput struct {
	Body ScrollRequest
}

// AdjustDisplayRequest is the request body for display controls. Steps
// are multiples of the font size and line height increments.
type AdjustDisplayRequest struct {
	FontSteps       int              `json:"fontSteps,omitempty" doc:"Font size steps, negative to shrink"`
	LineHeightSteps int              `json:"lineHeightSteps,omitempty" doc:"Line height steps, negative to tighten"`
	PageMode        *domain.PageMode `json:"pageMode,omitempty" enum:"scroll,pagination" doc:"Page mode"`
	ToggleTheme     bool             `json:"toggleTheme,omitempty" doc:"Advance to the next theme"`
}

// AdjustDisplayInput wraps the display request for Huma.
type AdjustDisplayInput struct {
	Body AdjustDisplayRequest
}

// === Handlers ===

func (s *Server) handleGetReader(_ context.Context, _ *struct{}) (*ReaderOutput, error) {
	return &ReaderOutput{Body: s.services.Reader.View()}, nil
}

func (s *Server) handleOpenBook(ctx context.Context, input *OpenBookInput) (*ReaderOutput, error) {
	if err := s.ensureOpen(ctx, input.BookID); err != nil {
		return nil, err
	}
	return &ReaderOutput{Body: s.services.Reader.View()}, nil
}

func (s *Server) handleNavigateChapter(ctx context.Context, input *NavigateChapterInput) (*ReaderOutput, error) {
	reader := s.services.Reader
	if err := s.ensureOpen(ctx, input.BookID); err != nil {
		return nil, err
	}

	var err error
	switch input.Body.Action {
	case ChapterNext:
		err = reader.Next(ctx)
	case ChapterPrev:
		err = reader.Prev(ctx)
	case ChapterGoTo:
		err = reader.GoTo(ctx, input.Body.Index)
	default:
		err = domainerrors.Validationf("unknown chapter action %q", input.Body.Action)
	}
	if err != nil {
		return nil, err
	}

	return &ReaderOutput{Body: reader.View()}, nil
}

func (s *Server) handleScrollReader(_ context.Context, input *ScrollInput) (*ReaderOutput, error) {
	reader := s.services.Reader
	if !reader.IsOpen() {
		return nil, domainerrors.Validation("no book is open")
	}
	reader.Scroll(input.Body.Offset)
	return &ReaderOutput{Body: reader.View()}, nil
}

func (s *Server) handleAdjustDisplay(_ context.Context, input *AdjustDisplayInput) (*ReaderOutput, error) {
	reader := s.services.Reader
	req := input.Body

	if req.FontSteps != 0 {
		reader.AdjustFontSize(req.FontSteps)
	}
	if req.LineHeightSteps != 0 {
		reader.AdjustLineHeight(req.LineHeightSteps)
	}
	if req.PageMode != nil {
		reader.SetPageMode(*req.PageMode)
	}
	if req.ToggleTheme {
		reader.ToggleTheme()
	}

	return &ReaderOutput{Body: reader.View()}, nil
}

func (s *Server) handleCloseReader(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	s.services.Reader.Close(ctx)
	return message("reader closed"), nil
}

// ensureOpen opens bookID unless it is already the open book.
func (s *Server) ensureOpen(ctx context.Context, bookID int64) error {
	reader := s.services.Reader
	if view := reader.View(); view.Book != nil && view.Book.ID == bookID {
		return nil
	}
	return reader.Open(ctx, bookID)
}
