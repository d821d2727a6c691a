package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHeartbeat = 30 * time.Second
	writeTimeout     = 60 * time.Second
	// retryMillis tells EventSource clients how long to wait before
	// reconnecting.
	retryMillis = 3000
)

// Handler serves the event stream. The optional "types" query parameter
// limits the stream to a comma-separated list of event types.
type Handler struct {
	manager   *Manager
	logger    *slog.Logger
	heartbeat time.Duration
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithHeartbeat sets how often an idle stream sends a keepalive comment.
func WithHeartbeat(d time.Duration) HandlerOption {
	return func(h *Handler) { h.heartbeat = d }
}

// NewHandler creates the stream handler for manager.
func NewHandler(manager *Manager, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{manager: manager, logger: logger, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	types, unknown := ParseTypes(r.URL.Query().Get("types"))
	if len(unknown) > 0 {
		http.Error(w, "unknown event types: "+strings.Join(unknown, ", "), http.StatusBadRequest)
		return
	}

	sub, err := h.manager.Subscribe(types...)
	if err != nil {
		h.logger.Warn("event stream refused", slog.String("error", err.Error()))
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.manager.Unsubscribe(sub.ID)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	log := h.logger.With(slog.String("subscriber_id", sub.ID))

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	hello := Event{Type: EventConnected, Data: map[string]string{"subscriberId": sub.ID}, Timestamp: time.Now()}
	if err := h.write(w, rc, hello); err != nil {
		log.Warn("failed to greet subscriber", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				log.Debug("stream closed by manager")
				return
			}
			if err := h.write(w, rc, e); err != nil {
				log.Debug("subscriber went away", slog.String("error", err.Error()))
				return
			}
			ticker.Reset(h.heartbeat)

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// write sends e in SSE framing and flushes it.
func (h *Handler) write(w http.ResponseWriter, rc *http.ResponseController, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var b strings.Builder
	if e.ID > 0 {
		fmt.Fprintf(&b, "id: %d\n", e.ID)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", e.Type, data)
	if _, err := fmt.Fprint(w, b.String()); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// httptest recorders do not support deadlines.
	_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return nil
}
