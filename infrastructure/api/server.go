package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/helixml/snippets/infrastructure/api/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	origins []string
}

// WithCORSOrigins sets the browser origins allowed to call the API.
// No origins disables CORS handling.
func WithCORSOrigins(origins ...string) ServerOption {
	return func(c *serverConfig) { c.origins = origins }
}

// NewServer creates a new API Server.
func NewServer(addr string, logger *slog.Logger, opts ...ServerOption) Server {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Timeout is applied per route group in mountRoutes, never here: the
	// MCP stream cannot run behind chi's Timeout writer.
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	if len(cfg.origins) > 0 {
		router.Use(CORS(cfg.origins))
	}

	return Server{
		router: router,
		addr:   addr,
		logger: logger,
	}
}

// CORS returns middleware allowing the given origins to call the API with
// bearer tokens and operator keys.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Authorization", "Content-Type",
			middleware.APIKeyHeader, middleware.IdentityHeader,
		},
		ExposedHeaders: []string{"Location", "Mcp-Session-Id"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	})
}

// Router returns the chi router for registering routes.
func (s Server) Router() chi.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("snippets api listening", slog.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("stopping snippets api")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s Server) Addr() string {
	return s.addr
}
