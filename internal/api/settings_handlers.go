package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/pages"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/settings",
		Summary:     "Get settings",
		Description: "Returns the reader settings and the signed-in user",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/pages/settings",
		Summary:     "Update settings",
		Description: "Merges the given fields into the reader settings. Out-of-range numbers are clamped",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTheme",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages/settings/theme",
		Summary:     "Toggle theme",
		Description: "Advances the theme: light, dark, sepia, then light again",
		Tags:        []string{"Settings"},
	}, s.handleToggleTheme)
}

// === DTOs ===

// SettingsOutput wraps the settings view for Huma.
type SettingsOutput struct {
	Body pages.SettingsView
}

// UpdateSettingsInput wraps the settings patch for Huma.
type UpdateSettingsInput struct {
	Body domain.SettingsPatch
}

// === Handlers ===

func (s *Server) handleGetSettings(_ context.Context, _ *struct{}) (*SettingsOutput, error) {
	return &SettingsOutput{Body: s.services.Settings.View()}, nil
}

func (s *Server) handleUpdateSettings(_ context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	page := s.services.Settings
	page.Update(input.Body)
	return &SettingsOutput{Body: page.View()}, nil
}

func (s *Server) handleToggleTheme(_ context.Context, _ *struct{}) (*SettingsOutput, error) {
	page := s.services.Settings
	page.ToggleTheme()
	return &SettingsOutput{Body: page.View()}, nil
}
