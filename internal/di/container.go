// Package di wires the legado client's services with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/di/providers"
	"github.com/legado-reader/legado-client/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// Services are built lazily on first use, so a CLI command only opens what
// it touches.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideKV)
	do.Provide(injector, providers.ProvideDeviceID)
	do.Provide(injector, providers.ProvideSealer)

	// Remote layer
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideRemoteClient)

	// Stores
	do.Provide(injector, providers.ProvideSession)
	do.Provide(injector, providers.ProvidePrefs)
	do.Provide(injector, providers.ProvideSynchronizer)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvidePlaceholders)

	// Pages
	do.Provide(injector, providers.ProvideBookshelfPage)
	do.Provide(injector, providers.ProvideReaderPage)
	do.Provide(injector, providers.ProvideSearchPage)
	do.Provide(injector, providers.ProvideSourcesPage)
	do.Provide(injector, providers.ProvideSourceEditPage)
	do.Provide(injector, providers.ProvideSettingsPage)
	do.Provide(injector, providers.ProvideLoginPage)

	// Workers
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSourceWatcher)
	do.Provide(injector, providers.ProvideSessionRefreshJob)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Logger returns the container's logger.
func Logger(injector do.Injector) *logger.Logger {
	return do.MustInvoke[*logger.Logger](injector)
}

// Serve starts everything the companion API needs and returns the
// listening server.
func Serve(injector do.Injector) (*providers.HTTPServerHandle, error) {
	if _, err := do.Invoke[*providers.SessionRefreshJob](injector); err != nil {
		return nil, err
	}
	return do.Invoke[*providers.HTTPServerHandle](injector)
}
