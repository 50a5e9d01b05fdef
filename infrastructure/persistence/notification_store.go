package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm/clause"
)

// NotificationStore implements notification.Store using GORM.
type NotificationStore struct {
	database.Repository[notification.Notification, NotificationModel]
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db database.Database) NotificationStore {
	return NotificationStore{
		Repository: database.NewRepository[notification.Notification, NotificationModel](db, NotificationMapper{}, "notification"),
	}
}

// Create inserts a notification unless one with the same idempotency key
// already exists, in which case the existing one is returned.
func (s NotificationStore) Create(ctx context.Context, n notification.Notification) (notification.Notification, bool, error) {
	model := s.Mapper().ToModel(n)

	db := s.DB(ctx)
	if n.IdempotencyKey() != "" {
		db = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		})
	}
	result := db.Create(&model)
	if result.Error != nil {
		return notification.Notification{}, false, fmt.Errorf("create notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := s.ByIdempotencyKey(ctx, n.IdempotencyKey())
		if err != nil {
			return notification.Notification{}, false, err
		}
		return existing, false, nil
	}
	return s.Mapper().ToDomain(model), true, nil
}

// ByIdempotencyKey retrieves the notification delivered for key.
func (s NotificationStore) ByIdempotencyKey(ctx context.Context, key string) (notification.Notification, error) {
	return s.FindOne(ctx, repository.WithCondition("idempotency_key", key))
}

// MarkRead marks one notification, or all of them when id is empty, as read.
func (s NotificationStore) MarkRead(ctx context.Context, receiverID, id string) (int64, error) {
	db := s.DB(ctx).Model(&NotificationModel{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false)
	if id != "" {
		db = db.Where("id = ?", id)
	}
	result := db.Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Clear dismisses every notification of a receiver.
func (s NotificationStore) Clear(ctx context.Context, receiverID string) (int64, error) {
	result := s.DB(ctx).Model(&NotificationModel{}).
		Where("receiver_id = ? AND is_cleared = ?", receiverID, false).
		Update("is_cleared", true)
	if result.Error != nil {
		return 0, fmt.Errorf("clear notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

var _ notification.Store = NotificationStore{}
