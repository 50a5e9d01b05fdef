package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/infrastructure/api/middleware"
)

// QueueAttributes describes the generation queue.
type QueueAttributes struct {
	Pending    int64 `json:"pending"`
	Generating bool  `json:"generating"`
}

// QueueRouter reports the generation queue.
type QueueRouter struct {
	client *snippets.Client
	logger *slog.Logger
}

// NewQueueRouter creates a new QueueRouter.
func NewQueueRouter(client *snippets.Client) *QueueRouter {
	return &QueueRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for queue endpoints.
func (r *QueueRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Status)
	return router
}

// Status handles GET /api/v1/queue.
func (r *QueueRouter) Status(w http.ResponseWriter, req *http.Request) {
	pending, err := r.client.Tasks.Count(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(jsonapi.NewResource("queue", "generation", &QueueAttributes{
		Pending:    pending,
		Generating: r.client.Generating(),
	})))
}
