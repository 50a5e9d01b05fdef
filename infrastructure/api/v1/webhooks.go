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

// WebhooksRouter receives identity provider events. Every route requires an
// operator API key.
type WebhooksRouter struct {
	client     *snippets.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewWebhooksRouter creates a new WebhooksRouter.
func NewWebhooksRouter(client *snippets.Client) *WebhooksRouter {
	return &WebhooksRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(BasePath),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for webhook endpoints.
func (r *WebhooksRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAPIKey(middleware.NewAuthConfigWithKeys(r.client.APIKeys())))
	router.Post("/identity", r.Identity)
	return router
}

// Identity handles POST /api/v1/webhooks/identity.
// Unknown event types are acknowledged and ignored.
func (r *WebhooksRouter) Identity(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var event dto.IdentityEvent
	if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: invalid event body: %v", service.ErrValidation, err), r.logger)
		return
	}

	switch event.Type {
	case dto.IdentityUserCreated, dto.IdentityUserUpdated:
		u, err := r.client.Users.UpsertFromProvider(ctx, service.ProviderUser{
			ExternalID:   event.Data.ID,
			FirstName:    event.Data.FirstName,
			LastName:     event.Data.LastName,
			ImageURL:     event.Data.ImageURL,
			PrimaryEmail: event.Data.PrimaryEmail(),
		})
		if err != nil {
			middleware.WriteError(w, req, err, r.logger)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.UserResource(u)))
	case dto.IdentityUserDeleted:
		if err := r.client.Users.DeleteFromProvider(ctx, event.Data.ID); err != nil {
			middleware.WriteError(w, req, err, r.logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.logger.Debug("ignoring identity event", slog.String("type", event.Type))
		w.WriteHeader(http.StatusNoContent)
	}
}
