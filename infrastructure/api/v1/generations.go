package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/infrastructure/api/middleware"
	"github.com/helixml/snippets/infrastructure/api/v1/dto"
)

// GenerationsRouter accepts snippet generation requests and reports their
// progress.
type GenerationsRouter struct {
	client     *snippets.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewGenerationsRouter creates a new GenerationsRouter.
func NewGenerationsRouter(client *snippets.Client) *GenerationsRouter {
	return &GenerationsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(BasePath),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for generation endpoints.
func (r *GenerationsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(identity(r.client))

	router.Post("/", r.Create)
	router.Get("/{id}", r.Get)

	return router
}

// Create handles POST /api/v1/generations. The request is queued and
// answered with 202 and the run to poll.
func (r *GenerationsRouter) Create(w http.ResponseWriter, req *http.Request) {
	externalID, ok := middleware.UserExternalID(req.Context())
	if !ok {
		middleware.WriteError(w, req, middleware.NewAuthenticationError("no identity"), r.logger)
		return
	}

	var body dto.GenerationRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: invalid request body: %v", service.ErrValidation, err), r.logger)
		return
	}

	run, err := r.client.Generations.Request(req.Context(), externalID, body.Data.Attributes.SearchQuery)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	w.Header().Set("Location", BasePath+"/generations/"+run.RequestID())
	middleware.WriteJSON(w, http.StatusAccepted, jsonapi.NewSingleResponse(r.serializer.RunResource(run)))
}

// Get handles GET /api/v1/generations/{id}. Only the requester may read it.
func (r *GenerationsRouter) Get(w http.ResponseWriter, req *http.Request) {
	externalID, ok := middleware.UserExternalID(req.Context())
	if !ok {
		middleware.WriteError(w, req, middleware.NewAuthenticationError("no identity"), r.logger)
		return
	}

	run, err := r.client.Generations.RunFor(req.Context(), chi.URLParam(req, "id"), externalID)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.RunResource(run)))
}
