package service

import (
	"context"

	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/repository"
)

// NotificationListParams configures notification listing.
type NotificationListParams struct {
	IncludeCleared bool
	Page           Page
}

// Notification reads and updates a user's notifications. Notifications are
// only ever created by the generation pipeline.
type Notification struct {
	store notification.Store
}

// NewNotification creates a new Notification service.
func NewNotification(store notification.Store) *Notification {
	return &Notification{store: store}
}

// List returns the user's notifications, newest first.
func (s *Notification) List(ctx context.Context, userID string, params NotificationListParams) ([]notification.Notification, error) {
	page := params.Page.normalized()
	options := []repository.Option{notification.WithReceiverID(userID)}
	if !params.IncludeCleared {
		options = append(options, notification.WithUncleared())
	}
	options = append(options, repository.WithOrderDesc("created_at"), repository.WithOrderDesc("id"))
	options = append(options, repository.WithPage(page.Number, page.Size)...)
	return s.store.Find(ctx, options...)
}

// UnreadCount returns the number of unread, uncleared notifications.
func (s *Notification) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.Count(ctx,
		notification.WithReceiverID(userID),
		notification.WithUnread(),
		notification.WithUncleared(),
	)
}

// MarkRead marks one notification as read.
func (s *Notification) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	if id == "" {
		return 0, ErrValidation
	}
	return s.store.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every notification of the user as read.
func (s *Notification) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkRead(ctx, userID, "")
}

// Clear dismisses every notification of the user.
func (s *Notification) Clear(ctx context.Context, userID string) (int64, error) {
	return s.store.Clear(ctx, userID)
}
