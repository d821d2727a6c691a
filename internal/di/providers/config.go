// Package providers contains dependency injection providers for the legado client.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
)

// ProvideLogger builds the logger from the logger and app sections of the
// config. Source locations are only added to debug output in development.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	level := logger.ParseLevel(cfg.Logger.Level)
	log := logger.New(logger.Config{
		Level:       level,
		Environment: cfg.App.Environment,
		AddSource:   cfg.App.Environment == "development" && level <= slog.LevelDebug,
	})

	log.WithComponent("config").Debug("loaded",
		"environment", cfg.App.Environment,
		"server", cfg.Server.BaseURL,
		"storage", cfg.Storage.Backend,
		"data_path", cfg.Storage.Path,
	)
	return log, nil
}
