package dto

import "strings"

// Identity provider event types.
const (
	IdentityUserCreated = "user.created"
	IdentityUserUpdated = "user.updated"
	IdentityUserDeleted = "user.deleted"
)

// EmailAddress is one address on an identity provider user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// IdentityUser is the user object carried by identity provider events.
type IdentityUser struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
}

// PrimaryEmail returns the address marked primary, else the first address.
func (u IdentityUser) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	if len(u.EmailAddresses) > 0 {
		return strings.TrimSpace(u.EmailAddresses[0].EmailAddress)
	}
	return ""
}

// IdentityEvent is a webhook delivery from the identity provider.
type IdentityEvent struct {
	Type string       `json:"type"`
	Data IdentityUser `json:"data"`
}
