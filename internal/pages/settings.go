package pages

import (
	"log/slog"

	"github.com/legado-reader/legado-client/internal/color"
	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/session"
)

// SettingsView is what the settings page renders.
type SettingsView struct {
	Settings     domain.ReaderSettings `json:"settings"`
	FontFamilies []string              `json:"fontFamilies"`
	User         *domain.User          `json:"user,omitempty"`
	Badge        *UserBadge            `json:"badge,omitempty"`
	ServerURL    string                `json:"serverUrl,omitempty"`
}

// UserBadge is the avatar shown next to the signed-in account.
type UserBadge struct {
	color.Badge
	Initial string `json:"initial"`
}

// Settings shows and edits the reader settings and the account.
type Settings struct {
	prefs     *prefs.Store
	session   *session.Store
	serverURL string
	logger    *slog.Logger
}

// NewSettings creates the settings page.
func NewSettings(store *prefs.Store, sess *session.Store, serverURL string, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Settings{prefs: store, session: sess, serverURL: serverURL, logger: logger}
}

// View returns the current settings.
func (p *Settings) View() SettingsView {
	view := SettingsView{
		Settings:     p.prefs.Settings(),
		FontFamilies: append([]string(nil), domain.FontFamilies...),
		User:         p.session.User(),
		ServerURL:    p.serverURL,
	}
	if view.User != nil {
		view.Badge = &UserBadge{
			Badge:   color.ForUser(view.User.Username),
			Initial: color.Initial(view.User.DisplayName()),
		}
	}
	return view
}

// Update applies patch and returns the resulting settings.
func (p *Settings) Update(patch domain.SettingsPatch) domain.ReaderSettings {
	return p.prefs.UpdateSettings(patch)
}

// ToggleTheme advances the theme.
func (p *Settings) ToggleTheme() domain.Theme {
	return p.prefs.ToggleTheme()
}

// Logout ends the session. Reader settings are kept.
func (p *Settings) Logout() {
	p.session.Logout()
	p.logger.Info("logged out")
}
