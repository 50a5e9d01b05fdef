package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/infrastructure/api/middleware"
	"github.com/helixml/snippets/infrastructure/api/v1/dto"
)

// SnippetsRouter handles snippet reads and per-user engagement.
type SnippetsRouter struct {
	client     *snippets.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewSnippetsRouter creates a new SnippetsRouter.
func NewSnippetsRouter(client *snippets.Client) *SnippetsRouter {
	return &SnippetsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(BasePath),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for snippet endpoints.
func (r *SnippetsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)
	router.Get("/{id}/similar", r.Similar)

	router.Group(func(authed chi.Router) {
		authed.Use(identity(r.client))
		authed.Get("/{id}/engagement", r.Engagement)
		authed.Put("/{id}/like", r.Like)
		authed.Delete("/{id}/like", r.Unlike)
		authed.Post("/{id}/like/toggle", r.ToggleLike)
		authed.Put("/{id}/save", r.Save)
		authed.Delete("/{id}/save", r.Unsave)
		authed.Put("/{id}/note", r.UpsertNote)
	})

	return router
}

// List handles GET /api/v1/snippets?sort=new|trending.
func (r *SnippetsRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	items, err := r.client.Snippets.List(ctx, service.SnippetListParams{
		Sort: snippet.ParseSort(req.URL.Query().Get("sort")),
		Page: pagination.ServicePage(),
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Snippets.Count(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.SnippetResources(items)).
		WithMeta(PaginationMeta(pagination, total)).
		WithLinks(PaginationLinks(req, pagination, total))
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Get handles GET /api/v1/snippets/{id}.
func (r *SnippetsRouter) Get(w http.ResponseWriter, req *http.Request) {
	sn, err := r.client.Snippets.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.SnippetResource(sn)))
}

// Similar handles GET /api/v1/snippets/{id}/similar.
func (r *SnippetsRouter) Similar(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := chi.URLParam(req, "id")

	if _, err := r.client.Snippets.Get(ctx, id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	summaries, err := r.client.Similarity.ForSnippet(ctx, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.SummaryResources(summaries)))
}

// Engagement handles GET /api/v1/snippets/{id}/engagement.
func (r *SnippetsRouter) Engagement(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error { return nil })
}

// Like handles PUT /api/v1/snippets/{id}/like.
func (r *SnippetsRouter) Like(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.Like(req.Context(), chi.URLParam(req, "id"), userID)
		return err
	})
}

// Unlike handles DELETE /api/v1/snippets/{id}/like.
func (r *SnippetsRouter) Unlike(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.Unlike(req.Context(), chi.URLParam(req, "id"), userID)
		return err
	})
}

// ToggleLike handles POST /api/v1/snippets/{id}/like/toggle.
func (r *SnippetsRouter) ToggleLike(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.ToggleLike(req.Context(), chi.URLParam(req, "id"), userID)
		return err
	})
}

// Save handles PUT /api/v1/snippets/{id}/save.
func (r *SnippetsRouter) Save(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.Save(req.Context(), chi.URLParam(req, "id"), userID)
		return err
	})
}

// Unsave handles DELETE /api/v1/snippets/{id}/save.
func (r *SnippetsRouter) Unsave(w http.ResponseWriter, req *http.Request) {
	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.Unsave(req.Context(), chi.URLParam(req, "id"), userID)
		return err
	})
}

// UpsertNote handles PUT /api/v1/snippets/{id}/note.
func (r *SnippetsRouter) UpsertNote(w http.ResponseWriter, req *http.Request) {
	var body dto.NoteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: invalid request body: %v", service.ErrValidation, err), r.logger)
		return
	}

	r.withUser(w, req, func(userID string) error {
		_, err := r.client.Engagement.UpsertNote(req.Context(), chi.URLParam(req, "id"), userID, body.Data.Attributes.Text)
		return err
	})
}

// withUser resolves the caller, runs action and answers with the caller's
// engagement on the snippet.
func (r *SnippetsRouter) withUser(w http.ResponseWriter, req *http.Request, action func(userID string) error) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if err := action(u.ID()); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	ctx := req.Context()
	id := chi.URLParam(req, "id")
	status, err := r.client.Engagement.Status(ctx, id, u.ID())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	sn, err := r.client.Snippets.Get(ctx, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(
		r.serializer.EngagementResource(id, status, sn.LikesCount()),
	))
}
