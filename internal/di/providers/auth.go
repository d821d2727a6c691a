package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/auth"
	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
)

// SealerHandle carries the session sealer. Sealer is nil when the session
// is not persisted across runs.
type SealerHandle struct {
	Sealer *auth.Sealer
}

// ProvideSealer loads or derives the key that seals the persisted session.
func ProvideSealer(i do.Injector) (*SealerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Storage.Backend == config.BackendMemory {
		return &SealerHandle{}, nil
	}

	deviceID := do.MustInvoke[DeviceID](i)

	if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	key, err := auth.ResolveKey(cfg.Storage.Path, cfg.Session.Passphrase)
	if err != nil {
		return nil, err
	}

	sealer, err := auth.NewSealer(key, string(deviceID))
	if err != nil {
		return nil, err
	}

	log.Debug("Session sealing key loaded", "derived", cfg.Session.Passphrase != "")

	return &SealerHandle{Sealer: sealer}, nil
}
