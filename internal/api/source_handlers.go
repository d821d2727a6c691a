package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/pages"
)

func (s *Server) registerSourceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSources",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/sources",
		Summary:     "List sources",
		Description: "Reloads the book sources and filters them by keyword and group",
		Tags:        []string{"Sources"},
	}, s.handleListSources)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSource",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/sources/{id}",
		Summary:     "Get source",
		Description: "Loads a source into the edit form",
		Tags:        []string{"Sources"},
	}, s.handleGetSource)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSource",
		Method:        http.MethodPost,
		Path:          "/api/v1/pages/sources",
		Summary:       "Create source",
		Description:   "Validates and creates a book source",
		Tags:          []string{"Sources"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSource",
		Method:      http.MethodPut,
		Path:        "/api/v1/pages/sources/{id}",
		Summary:     "Update source",
		Description: "Validates and saves changes to a book source",
		Tags:        []string{"Sources"},
	}, s.handleUpdateSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSource",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pages/sources/{id}",
		Summary:     "Delete source",
		Description: "Deletes a book source",
		Tags:        []string{"Sources"},
	}, s.handleDeleteSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "testSource",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/sources/{id}/test",
		Summary:     "Test source",
		Description: "Asks the server to validate a book source",
		Tags:        []string{"Sources"},
	}, s.handleTestSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSource",
		Method:      http.MethodPut,
		Path:        "/api/v1/pages/sources/{id}/toggle",
		Summary:     "Enable or disable source",
		Description: "Enables or disables a book source",
		Tags:        []string{"Sources"},
	}, s.handleToggleSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportSource",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/sources/{id}/export",
		Summary:     "Export source",
		Description: "Returns a loaded source in its import format",
		Tags:        []string{"Sources"},
	}, s.handleExportSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "importSources",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/sources/import",
		Summary:     "Import sources",
		Description: "Imports a JSON array of sources, or a single source object",
		Tags:        []string{"Sources"},
	}, s.handleImportSources)

	huma.Register(s.api, huma.Operation{
		OperationID: "importSourcesFromURL",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/sources/import-url",
		Summary:     "Import sources from URL",
		Description: "Has the server fetch and import a source list",
		Tags:        []string{"Sources"},
	}, s.handleImportSourcesFromURL)
}

// === DTOs ===

// ListSourcesInput contains parameters for the sources page.
type ListSourcesInput struct {
	Keyword string `query:"keyword" doc:"Filter by name or group"`
	Group   string `query:"group" doc:"Only this group; \"all\" or empty for every group"`
}

// SourcesOutput wraps the sources view for Huma.
type SourcesOutput struct {
	Body pages.SourcesView
}

// SourceIDInput contains the source ID path parameter.
type SourceIDInput struct {
	ID int64 `path:"id" doc:"Source ID"`
}

// SourceEditOutput wraps the edit form for Huma.
type SourceEditOutput struct {
	Body pages.SourceEditView
}

// SourceRequest is the editable part of a book source. Absent fields keep
// their current value.
type SourceRequest struct {
	SourceName     *string `json:"sourceName,omitempty" doc:"Display name"`
	SourceURL      *string `json:"sourceUrl,omitempty" doc:"Source site URL"`
	SourceIcon     *string `json:"sourceIcon,omitempty" doc:"Icon URL"`
	SourceGroup    *string `json:"sourceGroup,omitempty" doc:"Group name"`
	Enabled        *bool   `json:"enabled,omitempty" doc:"Use for search"`
	EnabledExplore *bool   `json:"enabledExplore,omitempty" doc:"Use for explore"`
	Weight         *int    `json:"weight,omitempty" doc:"Search weight"`
	CustomOrder    *int    `json:"customOrder,omitempty" doc:"Sort order"`
	Header         *string `json:"header,omitempty" doc:"Request headers as JSON"`
	LoginURL       *string `json:"loginUrl,omitempty" doc:"Login URL"`
	BookURLPattern *string `json:"bookUrlPattern,omitempty" doc:"Book URL pattern"`
	SearchURL      *string `json:"searchUrl,omitempty" doc:"Search URL template"`
	ExploreURL     *string `json:"exploreUrl,omitempty" doc:"Explore URL template"`
	RuleSearch     *string `json:"ruleSearch,omitempty" doc:"Search rule"`
	RuleBookInfo   *string `json:"ruleBookInfo,omitempty" doc:"Book info rule"`
	RuleToc        *string `json:"ruleToc,omitempty" doc:"Table of contents rule"`
	RuleContent    *string `json:"ruleContent,omitempty" doc:"Content rule"`
}

func (r SourceRequest) applyTo(src *domain.BookSource) {
	setIf(&src.SourceName, r.SourceName)
	setIf(&src.SourceURL, r.SourceURL)
	setIf(&src.SourceIcon, r.SourceIcon)
	setIf(&src.SourceGroup, r.SourceGroup)
	setIf(&src.Enabled, r.Enabled)
	setIf(&src.EnabledExplore, r.EnabledExplore)
	setIf(&src.Weight, r.Weight)
	setIf(&src.CustomOrder, r.CustomOrder)
	setIf(&src.Header, r.Header)
	setIf(&src.LoginURL, r.LoginURL)
	setIf(&src.BookURLPattern, r.BookURLPattern)
	setIf(&src.SearchURL, r.SearchURL)
	setIf(&src.ExploreURL, r.ExploreURL)
	setIf(&src.RuleSearch, r.RuleSearch)
	setIf(&src.RuleBookInfo, r.RuleBookInfo)
	setIf(&src.RuleToc, r.RuleToc)
	setIf(&src.RuleContent, r.RuleContent)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// CreateSourceInput wraps the create request for Huma.
type CreateSourceInput struct {
	Body SourceRequest
}

// UpdateSourceInput wraps the update request for Huma.
type UpdateSourceInput struct {
	ID   int64 `path:"id" doc:"Source ID"`
	Body SourceRequest
}

// ToggleSourceInput contains parameters for enabling a source.
type ToggleSourceInput struct {
	ID      int64 `path:"id" doc:"Source ID"`
	Enabled bool  `query:"enabled" required:"true" doc:"Enable (true) or disable (false)"`
}

// ExportSourceOutput carries the exported source JSON.
type ExportSourceOutput struct {
	Body json.RawMessage
}

// ImportSourcesInput carries the raw import payload.
type ImportSourcesInput struct {
	RawBody []byte `contentType:"application/json"`
}

// ImportSourcesFromURLRequest names a source list to import.
type ImportSourcesFromURLRequest struct {
	URL string `json:"url" format:"uri" doc:"URL of a JSON source list"`
}

// ImportSourcesFromURLInput wraps the URL import request for Huma.
type ImportSourcesFromURLInput struct {
	Body ImportSourcesFromURLRequest
}

// ImportResponse reports how many sources were imported.
type ImportResponse struct {
	Count   int               `json:"count" doc:"Number of sources imported"`
	Sources pages.SourcesView `json:"view" doc:"Sources page after the import"`
}

// ImportOutput wraps the import response for Huma.
type ImportOutput struct {
	Body ImportResponse
}

// === Handlers ===

func (s *Server) handleListSources(ctx context.Context, input *ListSourcesInput) (*SourcesOutput, error) {
	page := s.services.Sources
	if err := page.Load(ctx); err != nil {
		return nil, err
	}
	if err := page.Filter(ctx, input.Keyword, input.Group); err != nil {
		return nil, err
	}
	return &SourcesOutput{Body: page.View()}, nil
}

func (s *Server) handleGetSource(ctx context.Context, input *SourceIDInput) (*SourceEditOutput, error) {
	page := s.services.SourceEdit
	if err := page.Load(ctx, input.ID); err != nil {
		return nil, err
	}
	return &SourceEditOutput{Body: page.View()}, nil
}

func (s *Server) handleCreateSource(ctx context.Context, input *CreateSourceInput) (*SourceEditOutput, error) {
	return s.saveSource(ctx, 0, input.Body)
}

func (s *Server) handleUpdateSource(ctx context.Context, input *UpdateSourceInput) (*SourceEditOutput, error) {
	return s.saveSource(ctx, input.ID, input.Body)
}

// saveSource loads source id (0 for a new one), applies req and saves it.
func (s *Server) saveSource(ctx context.Context, id int64, req SourceRequest) (*SourceEditOutput, error) {
	page := s.services.SourceEdit
	if err := page.Load(ctx, id); err != nil {
		return nil, err
	}

	src := page.View().Source
	req.applyTo(&src)
	if _, err := page.Save(ctx, src); err != nil {
		return nil, err
	}
	return &SourceEditOutput{Body: page.View()}, nil
}

func (s *Server) handleDeleteSource(ctx context.Context, input *SourceIDInput) (*SourcesOutput, error) {
	page := s.services.Sources
	if err := page.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &SourcesOutput{Body: page.View()}, nil
}

func (s *Server) handleTestSource(ctx context.Context, input *SourceIDInput) (*MessageOutput, error) {
	msg, err := s.services.Sources.Test(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return message(msg), nil
}

func (s *Server) handleToggleSource(ctx context.Context, input *ToggleSourceInput) (*SourcesOutput, error) {
	page := s.services.Sources
	if err := page.Toggle(ctx, input.ID, input.Enabled); err != nil {
		return nil, err
	}
	return &SourcesOutput{Body: page.View()}, nil
}

func (s *Server) handleExportSource(ctx context.Context, input *SourceIDInput) (*ExportSourceOutput, error) {
	page := s.services.Sources
	if err := s.ensureSourcesLoaded(ctx); err != nil {
		return nil, err
	}
	data, err := page.Export(input.ID)
	if err != nil {
		return nil, err
	}
	return &ExportSourceOutput{Body: data}, nil
}

func (s *Server) handleImportSources(ctx context.Context, input *ImportSourcesInput) (*ImportOutput, error) {
	page := s.services.Sources
	count, err := page.Import(ctx, input.RawBody)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sources imported", "count", count)
	return &ImportOutput{Body: ImportResponse{Count: count, Sources: page.View()}}, nil
}

func (s *Server) handleImportSourcesFromURL(ctx context.Context, input *ImportSourcesFromURLInput) (*ImportOutput, error) {
	page := s.services.Sources
	count, err := page.ImportURL(ctx, input.Body.URL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sources imported", "url", input.Body.URL, "count", count)
	return &ImportOutput{Body: ImportResponse{Count: count, Sources: page.View()}}, nil
}

// ensureSourcesLoaded loads the source list once so exports work before
// the list page has been visited.
func (s *Server) ensureSourcesLoaded(ctx context.Context) error {
	if s.services.Sources.View().Total > 0 {
		return nil
	}
	return s.services.Sources.Load(ctx)
}
