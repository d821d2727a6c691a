package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/progress"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/session"
	"github.com/legado-reader/legado-client/internal/sse"
	"github.com/legado-reader/legado-client/internal/watcher"
)

// sessionRefreshInterval is how often a long-running client revalidates its token.
const sessionRefreshInterval = time.Hour

// SynchronizerHandle wraps the progress synchronizer with shutdown capability.
type SynchronizerHandle struct {
	*progress.Synchronizer
}

// Shutdown implements do.Shutdownable.
func (h *SynchronizerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.Close(ctx)
	return nil
}

// ProvideSynchronizer provides the debounced progress synchronizer.
func ProvideSynchronizer(i do.Injector) (*SynchronizerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*remote.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return &SynchronizerHandle{
		Synchronizer: progress.New(client, cfg.Sync.Debounce, log.WithComponent("progress")),
	}, nil
}

// SourceWatcherHandle wraps the source drop-folder watcher with shutdown capability.
type SourceWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SourceWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideSourceWatcher provides a watcher whose settled .json and .txt files
// are imported as book sources. Directories are added with Watch.
func ProvideSourceWatcher(i do.Injector) (*SourceWatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	sources := do.MustInvoke[*pages.Sources](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	w, err := watcher.New(log.WithComponent("watcher"), watcher.Options{
		Extensions: []string{".json", ".txt"},
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Source watcher error", "error", err)
		}
	}()

	go func() {
		for {
			select {
			case err := <-w.Errors():
				log.Warn("source watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	go sources.AutoImport(ctx, w.Events(), func(r pages.ImportResult) {
		if r.Err == nil {
			sseHandle.Emit(sse.NewSourcesImportedEvent(r.Path, r.Count))
		}
	})

	return &SourceWatcherHandle{Watcher: w, cancel: cancel}, nil
}

// SessionRefreshJob revalidates the session token periodically so an
// expired or revoked token is noticed while the companion runs.
type SessionRefreshJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionRefreshJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionRefreshJob provides the periodic session refresh job.
func ProvideSessionRefreshJob(i do.Injector) (*SessionRefreshJob, error) {
	sess := do.MustInvoke[*session.Store](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	refresh := func() {
		if !sess.IsAuthenticated() {
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if _, err := sess.Refresh(reqCtx); err != nil {
			log.Warn("Session refresh failed", "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(sessionRefreshInterval)
		defer ticker.Stop()

		// Initial refresh on startup
		refresh()

		for {
			select {
			case <-ticker.C:
				refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Debug("Session refresh job started")

	return &SessionRefreshJob{cancel: cancel}, nil
}
