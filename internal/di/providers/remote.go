package providers

import (
	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/ratelimit"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/session"
)

// RateLimiterHandle holds the outbound request limiter. A nil limiter
// means throttling is off.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// ProvideRateLimiter provides the per-host limiter for server requests.
// A zero rate disables throttling.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Server.RateLimit <= 0 {
		return &RateLimiterHandle{}, nil
	}
	return &RateLimiterHandle{KeyedRateLimiter: ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)}, nil
}

// ProvideRemoteClient provides the legado server client. The session store
// becomes its token source once both exist.
func ProvideRemoteClient(i do.Injector) (*remote.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	deviceID := do.MustInvoke[DeviceID](i)

	return remote.New(remote.Config{
		BaseURL:  cfg.Server.BaseURL,
		Timeout:  cfg.Server.Timeout,
		ClientID: string(deviceID),
		Limiter:  limiter.KeyedRateLimiter,
	}, log.WithComponent("remote"))
}

// ProvideSession provides the session auth store and installs it as the
// client's token source.
func ProvideSession(i do.Injector) (*session.Store, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	sealer := do.MustInvoke[*SealerHandle](i)
	client := do.MustInvoke[*remote.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	sess := session.New(kvHandle.KV, client, sealer.Sealer, log.WithComponent("session"))
	client.SetTokenSource(sess)
	return sess, nil
}

// ProvidePrefs provides the reader preference store.
func ProvidePrefs(i do.Injector) (*prefs.Store, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return prefs.New(kvHandle.KV, log.WithComponent("prefs")), nil
}
