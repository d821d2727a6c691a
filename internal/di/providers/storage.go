package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/store"
	"github.com/legado-reader/legado-client/internal/store/redis"
	"github.com/legado-reader/legado-client/internal/store/sqlite"
)

// KVHandle wraps the configured key-value backend with shutdown capability.
type KVHandle struct {
	store.KV
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *KVHandle) Shutdown() error {
	return h.Close()
}

// DeviceID identifies this installation to the server.
type DeviceID string

// ProvideKV opens the storage backend selected by the configuration.
func ProvideKV(i do.Injector) (*KVHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Storage.Backend != config.BackendMemory && cfg.Storage.Backend != config.BackendRedis {
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	var (
		kv  store.KV
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		kv, err = store.New(filepath.Join(cfg.Storage.Path, "db"), log.Logger)
	case config.BackendSQLite:
		kv, err = sqlite.Open(filepath.Join(cfg.Storage.Path, "legado.db"), log.Logger)
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		kv, err = redis.Open(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
	case config.BackendMemory:
		kv = store.NewMemory()
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("Storage opened", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	return &KVHandle{KV: kv, Backend: cfg.Storage.Backend}, nil
}

// ProvideDeviceID provides the persisted installation id.
func ProvideDeviceID(i do.Injector) (DeviceID, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	id, err := store.DeviceID(ctx, kvHandle.KV)
	if err != nil {
		return "", fmt.Errorf("device id: %w", err)
	}
	return DeviceID(id), nil
}
