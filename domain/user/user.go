// Package user provides the user domain type. Users are owned by the external
// identity provider; this service only mirrors their profile.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/helixml/snippets/domain/repository"
)

// User is a local mirror of an identity provider account.
type User struct {
	id           string
	externalID   string
	firstName    string
	lastName     string
	imageURL     string
	primaryEmail string
	totalRewards int
	createdAt    time.Time
	updatedAt    time.Time
}

// Profile is the provider-owned part of a user.
type Profile struct {
	ExternalID   string
	FirstName    string
	LastName     string
	ImageURL     string
	PrimaryEmail string
}

// NewUser creates a user from a provider profile.
func NewUser(id string, p Profile) User {
	now := time.Now().UTC()
	return User{
		id:           id,
		externalID:   p.ExternalID,
		firstName:    strings.TrimSpace(p.FirstName),
		lastName:     strings.TrimSpace(p.LastName),
		imageURL:     p.ImageURL,
		primaryEmail: p.PrimaryEmail,
		createdAt:    now,
		updatedAt:    now,
	}
}

// NewUserFull creates a User with all fields (used by stores).
func NewUserFull(id string, p Profile, totalRewards int, createdAt, updatedAt time.Time) User {
	u := NewUser(id, p)
	u.totalRewards = totalRewards
	u.createdAt = createdAt
	u.updatedAt = updatedAt
	return u
}

// ID returns the local user id.
func (u User) ID() string { return u.id }

// ExternalID returns the identity provider's subject id.
func (u User) ExternalID() string { return u.externalID }

// FirstName returns the first name.
func (u User) FirstName() string { return u.firstName }

// LastName returns the last name.
func (u User) LastName() string { return u.lastName }

// ImageURL returns the avatar url.
func (u User) ImageURL() string { return u.imageURL }

// PrimaryEmail returns the primary email address.
func (u User) PrimaryEmail() string { return u.primaryEmail }

// TotalRewards returns the reward balance.
func (u User) TotalRewards() int { return u.totalRewards }

// CreatedAt returns when the user was first mirrored.
func (u User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns when the profile last changed.
func (u User) UpdatedAt() time.Time { return u.updatedAt }

// Profile returns the provider-owned fields.
func (u User) Profile() Profile {
	return Profile{
		ExternalID:   u.externalID,
		FirstName:    u.firstName,
		LastName:     u.lastName,
		ImageURL:     u.imageURL,
		PrimaryEmail: u.primaryEmail,
	}
}

// WithProfile returns a copy with an updated profile. Id, rewards and
// creation time are preserved.
func (u User) WithProfile(p Profile) User {
	updated := NewUser(u.id, p)
	updated.totalRewards = u.totalRewards
	updated.createdAt = u.createdAt
	return updated
}

// WithExternalID filters by identity provider id.
func WithExternalID(id string) repository.Option {
	return repository.WithCondition("external_id", id)
}

// Store persists users.
type Store interface {
	// Get retrieves a user by local id.
	Get(ctx context.Context, id string) (User, error)

	// FindOne retrieves the first user matching the options.
	FindOne(ctx context.Context, options ...repository.Option) (User, error)

	// Upsert inserts a user or updates the profile of the user with the same
	// external id.
	Upsert(ctx context.Context, user User) (User, error)

	// DeleteByExternalID removes a user; deleting a missing user is not an error.
	DeleteByExternalID(ctx context.Context, externalID string) error
}
