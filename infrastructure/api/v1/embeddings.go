package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/infrastructure/api/middleware"
)

// EmbeddingsRouter answers similarity queries keyed by abstract embedding id.
type EmbeddingsRouter struct {
	client     *snippets.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewEmbeddingsRouter creates a new EmbeddingsRouter.
func NewEmbeddingsRouter(client *snippets.Client) *EmbeddingsRouter {
	return &EmbeddingsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(BasePath),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for embedding endpoints.
func (r *EmbeddingsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/{id}/similar", r.Similar)
	return router
}

// Similar handles GET /api/v1/embeddings/{id}/similar. An unknown embedding
// yields an empty list.
func (r *EmbeddingsRouter) Similar(w http.ResponseWriter, req *http.Request) {
	summaries, err := r.client.Similarity.ForEmbedding(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.SummaryResources(summaries)))
}
