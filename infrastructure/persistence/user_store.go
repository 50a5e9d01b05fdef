package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/user"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm/clause"
)

// UserStore implements user.Store using GORM.
type UserStore struct {
	database.Repository[user.User, UserModel]
}

// NewUserStore creates a new UserStore.
func NewUserStore(db database.Database) UserStore {
	return UserStore{
		Repository: database.NewRepository[user.User, UserModel](db, UserMapper{}, "user"),
	}
}

// Get retrieves a user by local id.
func (s UserStore) Get(ctx context.Context, id string) (user.User, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// Upsert inserts the user or, when the external id is already known, updates
// only the provider-owned profile columns. The stored user is returned.
func (s UserStore) Upsert(ctx context.Context, u user.User) (user.User, error) {
	model := s.Mapper().ToModel(u)
	model.UpdatedAt = time.Now().UTC()

	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "image_url", "primary_email", "updated_at",
		}),
	}).Create(&model).Error
	if err != nil {
		return user.User{}, fmt.Errorf("upsert user: %w", err)
	}

	return s.FindOne(ctx, user.WithExternalID(u.ExternalID()))
}

// DeleteByExternalID removes a user. Deleting a missing user is not an error.
func (s UserStore) DeleteByExternalID(ctx context.Context, externalID string) error {
	return s.DeleteBy(ctx, user.WithExternalID(externalID))
}

var _ user.Store = UserStore{}
