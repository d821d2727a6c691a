// Package api serves the reader pages over a local HTTP API for a browser
// front-end. Every response uses the same {code, message, data, timestamp}
// envelope as the legado server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/legado-reader/legado-client/internal/ratelimit"
	"github.com/legado-reader/legado-client/internal/search"
	"github.com/legado-reader/legado-client/internal/sse"
)

// Options configures the companion server.
type Options struct {
	// AllowedOrigins lists the browser origins allowed by CORS.
	AllowedOrigins []string
	// SessionRate limits login and register attempts per client address,
	// in requests per minute. Zero uses the default.
	SessionRate int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services       *Services
	sseManager     *sse.Manager
	sseHandler     *sse.Handler
	index          *search.Index
	router         *chi.Mux
	api            huma.API
	sessionLimiter *RateLimiter
	logger         *slog.Logger
}

// NewServer creates the companion server with all routes configured.
func NewServer(services *Services, sseManager *sse.Manager, index *search.Index, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.SessionRate <= 0 {
		opts.SessionRate = defaultSessionRate
	}

	router := chi.NewRouter()

	s := &Server{
		services:       services,
		sseManager:     sseManager,
		index:          index,
		router:         router,
		sessionLimiter: NewRateLimiter(opts.SessionRate, time.Minute, sessionBurst),
		logger:         logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Legado Companion API", "1.0.0")
	humaConfig.Info.Description = "Local API over the legado reader pages"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookshelfRoutes()
	s.registerReaderRoutes()
	s.registerSearchRoutes()
	s.registerSourceRoutes()
	s.registerSettingsRoutes()
	s.registerSessionRoutes()

	// The event stream is plain SSE, outside huma.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}
