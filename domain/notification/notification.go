// Package notification provides the in-app notifications sent when a
// generation job ends.
package notification

import (
	"context"
	"strings"
	"time"

	"github.com/helixml/snippets/domain/repository"
)

// Kind is the notification type.
type Kind string

// Kind values. Each generation job produces exactly one of them.
const (
	KindNoInformation    Kind = "no-information"
	KindError            Kind = "error"
	KindGeneratedSnippet Kind = "generated-snippet"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNoInformation, KindError, KindGeneratedSnippet:
		return true
	default:
		return false
	}
}

// payloadSeparator splits the query from the snippet link.
const payloadSeparator = "|"

// QueryPayload builds the payload of a notification that carries only the
// query. Separators inside the query become "/" so the payload never holds
// more than one.
func QueryPayload(query string) string {
	return strings.ReplaceAll(query, payloadSeparator, "/")
}

// GeneratedPayload builds the payload of a generated-snippet notification:
// "<query>|snippet/<id>".
func GeneratedPayload(query, snippetID string) string {
	return QueryPayload(query) + payloadSeparator + "snippet/" + snippetID
}

// ParsePayload splits a payload on its first separator into the query and
// the optional snippet path.
func ParsePayload(payload string) (query, link string) {
	query, link, _ = strings.Cut(payload, payloadSeparator)
	return query, link
}

// Notification is a message for one user.
type Notification struct {
	id             string
	receiverID     string
	creatorID      string
	kind           Kind
	payload        string
	idempotencyKey string
	isRead         bool
	isCleared      bool
	createdAt      time.Time
}

// NewNotification creates an unread notification.
func NewNotification(id, receiverID string, kind Kind, payload string) Notification {
	return Notification{
		id:         id,
		receiverID: receiverID,
		kind:       kind,
		payload:    payload,
		createdAt:  time.Now().UTC(),
	}
}

// NewNotificationFull creates a Notification with all fields (used by stores).
func NewNotificationFull(
	id, receiverID, creatorID string,
	kind Kind,
	payload, idempotencyKey string,
	isRead, isCleared bool,
	createdAt time.Time,
) Notification {
	return Notification{
		id:             id,
		receiverID:     receiverID,
		creatorID:      creatorID,
		kind:           kind,
		payload:        payload,
		idempotencyKey: idempotencyKey,
		isRead:         isRead,
		isCleared:      isCleared,
		createdAt:      createdAt,
	}
}

// ID returns the notification id.
func (n Notification) ID() string { return n.id }

// ReceiverID returns the receiving user.
func (n Notification) ReceiverID() string { return n.receiverID }

// CreatorID returns the originating user, if any.
func (n Notification) CreatorID() string { return n.creatorID }

// Kind returns the notification kind.
func (n Notification) Kind() Kind { return n.kind }

// Payload returns the raw payload.
func (n Notification) Payload() string { return n.payload }

// Query returns the search query carried by the payload.
func (n Notification) Query() string {
	q, _ := ParsePayload(n.payload)
	return q
}

// Link returns the snippet path carried by the payload, if any.
func (n Notification) Link() string {
	_, l := ParsePayload(n.payload)
	return l
}

// IdempotencyKey returns the key that prevents duplicate delivery.
func (n Notification) IdempotencyKey() string { return n.idempotencyKey }

// IsRead reports whether the receiver has read the notification.
func (n Notification) IsRead() bool { return n.isRead }

// IsCleared reports whether the receiver dismissed the notification.
func (n Notification) IsCleared() bool { return n.isCleared }

// CreatedAt returns when the notification was sent.
func (n Notification) CreatedAt() time.Time { return n.createdAt }

// WithCreator returns a copy with an originating user.
func (n Notification) WithCreator(id string) Notification {
	n.creatorID = id
	return n
}

// WithIdempotencyKey returns a copy that is delivered at most once per key.
func (n Notification) WithIdempotencyKey(key string) Notification {
	n.idempotencyKey = key
	return n
}

// WithReceiverID filters by receiving user.
func WithReceiverID(id string) repository.Option {
	return repository.WithCondition("receiver_id", id)
}

// WithUncleared keeps notifications that were not dismissed.
func WithUncleared() repository.Option {
	return repository.WithCondition("is_cleared", false)
}

// WithUnread keeps unread notifications.
func WithUnread() repository.Option {
	return repository.WithCondition("is_read", false)
}

// Store persists notifications.
type Store interface {
	// Create inserts a notification. A notification whose idempotency key was
	// already used is not inserted again; the stored one is returned with
	// created=false.
	Create(ctx context.Context, n Notification) (stored Notification, created bool, err error)

	// ByIdempotencyKey retrieves the notification delivered for key.
	ByIdempotencyKey(ctx context.Context, key string) (Notification, error)

	// Find retrieves notifications matching the options.
	Find(ctx context.Context, options ...repository.Option) ([]Notification, error)

	// Count returns the number of notifications matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// MarkRead marks notifications of a receiver as read. An empty id marks
	// all of them. Returns the number changed.
	MarkRead(ctx context.Context, receiverID, id string) (int64, error)

	// Clear dismisses every notification of a receiver.
	Clear(ctx context.Context, receiverID string) (int64, error)
}
