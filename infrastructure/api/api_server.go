package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/infrastructure/api/middleware"
	v1 "github.com/helixml/snippets/infrastructure/api/v1"
	mcpinternal "github.com/helixml/snippets/internal/mcp"
)

// APIServer provides an HTTP API backed by a snippets Client.
type APIServer struct {
	client       *snippets.Client
	version      string
	origins      []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// APIServerOption configures an APIServer.
type APIServerOption func(*APIServer)

// WithVersion sets the version reported by the MCP endpoint.
func WithVersion(version string) APIServerOption {
	return func(a *APIServer) { a.version = version }
}

// WithCORS allows browser calls from the given origins.
func WithCORS(origins ...string) APIServerOption {
	return func(a *APIServer) { a.origins = origins }
}

// NewAPIServer creates a new APIServer wired to the given Client.
// Identity webhooks require one of the client's API keys. Personal routes
// (/me, engagement, generations) require an authenticated user. Snippet
// reads, similarity, queue status and MCP are open.
func NewAPIServer(client *snippets.Client, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		client:  client,
		version: "dev",
		logger:  client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Route(v1.BasePath, func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/snippets", v1.NewSnippetsRouter(c).Routes())
		r.Mount("/embeddings", v1.NewEmbeddingsRouter(c).Routes())
		r.Mount("/queue", v1.NewQueueRouter(c).Routes())
		r.Mount("/me", v1.NewMeRouter(c).Routes())
		r.Mount("/generations", v1.NewGenerationsRouter(c).Routes())
		r.Mount("/webhooks", v1.NewWebhooksRouter(c).Routes())
	})

	// No timeout here: MCP streams and tracks sessions through response
	// headers, which chi's Timeout writer breaks.
	mcpSrv := mcpinternal.NewServer(c.Snippets, c.Similarity, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))

	router.Get("/health", a.health)
	router.Get("/healthz", a.health)
}

func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	srv := NewServer(addr, a.logger, WithCORSOrigins(a.origins...))
	a.server = &srv

	if a.routerCalled && a.router != nil {
		srv.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(srv.Router())
	}

	return srv.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		if len(a.origins) > 0 {
			a.router.Use(CORS(a.origins))
		}
		a.MountRoutes()
	}
	return a.router
}
