package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/api"
	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/session"
	"github.com/legado-reader/legado-client/internal/sse"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel      context.CancelFunc
	unsubscribe func()
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.unsubscribe()
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager, fed by the
// preference and session stores.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*prefs.Store](i)
	sess := do.MustInvoke[*session.Store](i)

	manager := sse.NewManager(log.WithComponent("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)

	unsubscribe := manager.WatchPrefs(store)
	manager.WatchSession(sess)

	return &SSEManagerHandle{
		Manager:     manager,
		cancel:      cancel,
		unsubscribe: unsubscribe,
	}, nil
}

// ProvideAPIServer provides the companion API handler.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	reader := do.MustInvoke[*ReaderHandle](i)

	services := &api.Services{
		Session:    do.MustInvoke[*session.Store](i),
		Bookshelf:  do.MustInvoke[*pages.Bookshelf](i),
		Reader:     reader.Reader,
		Search:     do.MustInvoke[*pages.Search](i),
		Sources:    do.MustInvoke[*pages.Sources](i),
		SourceEdit: do.MustInvoke[*pages.SourceEdit](i),
		Settings:   do.MustInvoke[*pages.Settings](i),
		Login:      do.MustInvoke[*pages.Login](i),
	}

	return api.NewServer(services, sseHandle.Manager, index.Index, api.Options{
		AllowedOrigins: cfg.Companion.AllowedOrigins,
	}, log.WithComponent("api")), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	// BoundAddr is the listening address, which differs from the configured one
	// when the port is 0.
	BoundAddr string
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer binds the companion address and serves the API in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	ln, err := net.Listen("tcp", cfg.Companion.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Companion.Addr, err)
	}

	// No write timeout: the event stream stays open.
	srv := &http.Server{
		Handler:     handler,
		ReadTimeout: cfg.Companion.ReadTimeout,
		IdleTimeout: cfg.Companion.IdleTimeout,
	}

	// Start in background
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	addr := ln.Addr().String()
	log.Info("Companion API listening", "addr", addr)

	return &HTTPServerHandle{Server: srv, BoundAddr: addr}, nil
}
