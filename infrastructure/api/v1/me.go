package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/infrastructure/api/middleware"
)

// MeRouter serves the authenticated user's profile, collections and
// notifications.
type MeRouter struct {
	client     *snippets.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewMeRouter creates a new MeRouter.
func NewMeRouter(client *snippets.Client) *MeRouter {
	return &MeRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(BasePath),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /me endpoints.
func (r *MeRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(identity(r.client))

	router.Get("/", r.Profile)
	router.Get("/saved", r.Saved)
	router.Get("/notes", r.Notes)
	router.Get("/notifications", r.Notifications)
	router.Post("/notifications/read", r.MarkAllRead)
	router.Post("/notifications/{id}/read", r.MarkRead)
	router.Post("/notifications/clear", r.Clear)

	return router
}

// Profile handles GET /api/v1/me.
func (r *MeRouter) Profile(w http.ResponseWriter, req *http.Request) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.UserResource(u)))
}

// Saved handles GET /api/v1/me/saved, newest save first.
func (r *MeRouter) Saved(w http.ResponseWriter, req *http.Request) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	pagination := ParsePagination(req)
	page, err := r.client.Engagement.SavedSnippets(req.Context(), u.ID(), pagination.ServicePage())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.SavedResources(page.Items)).
		WithMeta(PaginationMeta(pagination, page.Total)).
		WithLinks(PaginationLinks(req, pagination, page.Total))
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Notes handles GET /api/v1/me/notes?search=.
func (r *MeRouter) Notes(w http.ResponseWriter, req *http.Request) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	pagination := ParsePagination(req)
	notes, err := r.client.Engagement.Notes(req.Context(), u.ID(), req.URL.Query().Get("search"), pagination.ServicePage())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.NoteResources(notes)))
}

// Notifications handles GET /api/v1/me/notifications, newest first.
// include_cleared=true also lists cleared notifications.
func (r *MeRouter) Notifications(w http.ResponseWriter, req *http.Request) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	ctx := req.Context()
	includeCleared, _ := strconv.ParseBool(req.URL.Query().Get("include_cleared"))
	list, err := r.client.Notifications.List(ctx, u.ID(), service.NotificationListParams{
		IncludeCleared: includeCleared,
		Page:           ParsePagination(req).ServicePage(),
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	unread, err := r.client.Notifications.UnreadCount(ctx, u.ID())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.NotificationResources(list)).
		WithMeta(&jsonapi.Meta{"unread_count": unread})
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// MarkAllRead handles POST /api/v1/me/notifications/read.
func (r *MeRouter) MarkAllRead(w http.ResponseWriter, req *http.Request) {
	r.update(w, req, func(userID string) (int64, error) {
		return r.client.Notifications.MarkAllRead(req.Context(), userID)
	})
}

// MarkRead handles POST /api/v1/me/notifications/{id}/read.
func (r *MeRouter) MarkRead(w http.ResponseWriter, req *http.Request) {
	r.update(w, req, func(userID string) (int64, error) {
		return r.client.Notifications.MarkRead(req.Context(), userID, chi.URLParam(req, "id"))
	})
}

// Clear handles POST /api/v1/me/notifications/clear.
func (r *MeRouter) Clear(w http.ResponseWriter, req *http.Request) {
	r.update(w, req, func(userID string) (int64, error) {
		return r.client.Notifications.Clear(req.Context(), userID)
	})
}

func (r *MeRouter) update(w http.ResponseWriter, req *http.Request, fn func(userID string) (int64, error)) {
	u, req, err := currentUser(r.client, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	changed, err := fn(u.ID())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.Document{Meta: &jsonapi.Meta{"updated": changed}})
}
