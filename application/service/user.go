package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/helixml/snippets/domain/user"
)

// ProviderUser is a user as described by an identity provider event.
type ProviderUser struct {
	ExternalID   string
	FirstName    string
	LastName     string
	ImageURL     string
	PrimaryEmail string
}

// User mirrors identity provider users into the local store.
type User struct {
	store  user.Store
	logger *slog.Logger
}

// NewUser creates a new User service.
func NewUser(store user.Store, logger *slog.Logger) *User {
	return &User{store: store, logger: logger}
}

// UpsertFromProvider creates the user or refreshes their profile. The local
// id and reward counter of an existing user are kept.
func (s *User) UpsertFromProvider(ctx context.Context, p ProviderUser) (user.User, error) {
	externalID := strings.TrimSpace(p.ExternalID)
	if externalID == "" {
		return user.User{}, fmt.Errorf("%w: external id is required", ErrValidation)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return user.User{}, fmt.Errorf("allocate user id: %w", err)
	}
	u, err := s.store.Upsert(ctx, user.NewUser(id.String(), user.Profile{
		ExternalID:   externalID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		ImageURL:     p.ImageURL,
		PrimaryEmail: p.PrimaryEmail,
	}))
	if err != nil {
		return user.User{}, err
	}
	s.logger.InfoContext(ctx, "user synced", slog.String("user_id", u.ID()), slog.String("external_id", externalID))
	return u, nil
}

// DeleteFromProvider removes the user. Deleting an unknown user is not an
// error, and their snippets are kept.
func (s *User) DeleteFromProvider(ctx context.Context, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return fmt.Errorf("%w: external id is required", ErrValidation)
	}
	if err := s.store.DeleteByExternalID(ctx, externalID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("external_id", externalID))
	return nil
}

// ByExternalID retrieves a user by identity provider id.
func (s *User) ByExternalID(ctx context.Context, externalID string) (user.User, error) {
	return s.store.FindOne(ctx, user.WithExternalID(externalID))
}

// Get retrieves a user by local id.
func (s *User) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.Get(ctx, id)
}
