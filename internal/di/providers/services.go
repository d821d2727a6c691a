package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/media/images"
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/session"
)

// ProvidePlaceholders provides the cover placeholder cache.
func ProvidePlaceholders(i do.Injector) (*images.Placeholders, error) {
	client := do.MustInvoke[*remote.Client](i)
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewPlaceholders(client, kvHandle.KV, log.WithComponent("covers")), nil
}

// ProvideBookshelfPage provides the bookshelf page.
func ProvideBookshelfPage(i do.Injector) (*pages.Bookshelf, error) {
	client := do.MustInvoke[*remote.Client](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	placeholders := do.MustInvoke[*images.Placeholders](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewBookshelf(client, index.Index, placeholders, log.WithComponent("bookshelf")), nil
}

// ReaderHandle wraps the reader page so closing the container leaves the
// reader the same way the user would.
type ReaderHandle struct {
	*pages.Reader
}

// Shutdown implements do.Shutdownable.
func (h *ReaderHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.Close(ctx)
	return nil
}

// ProvideReaderPage provides the reader page.
func ProvideReaderPage(i do.Injector) (*ReaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*remote.Client](i)
	store := do.MustInvoke[*prefs.Store](i)
	synchronizer := do.MustInvoke[*SynchronizerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	reader := pages.NewReader(client, store, synchronizer.Synchronizer, pages.ReaderOptions{
		FlushOnClose: cfg.Sync.FlushOnClose,
	}, log.WithComponent("reader"))

	return &ReaderHandle{Reader: reader}, nil
}

// ProvideSearchPage provides the server-side book search page.
func ProvideSearchPage(i do.Injector) (*pages.Search, error) {
	client := do.MustInvoke[*remote.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewSearch(client, log.WithComponent("search")), nil
}

// ProvideSourcesPage provides the book source list page.
func ProvideSourcesPage(i do.Injector) (*pages.Sources, error) {
	client := do.MustInvoke[*remote.Client](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewSources(client, index.Index, log.WithComponent("sources")), nil
}

// ProvideSourceEditPage provides the book source editor.
func ProvideSourceEditPage(i do.Injector) (*pages.SourceEdit, error) {
	client := do.MustInvoke[*remote.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewSourceEdit(client, log.WithComponent("source-edit")), nil
}

// ProvideSettingsPage provides the settings page.
func ProvideSettingsPage(i do.Injector) (*pages.Settings, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store := do.MustInvoke[*prefs.Store](i)
	sess := do.MustInvoke[*session.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewSettings(store, sess, cfg.Server.BaseURL, log.WithComponent("settings")), nil
}

// ProvideLoginPage provides the login and registration page.
func ProvideLoginPage(i do.Injector) (*pages.Login, error) {
	sess := do.MustInvoke[*session.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pages.NewLogin(sess, log.WithComponent("login")), nil
}
