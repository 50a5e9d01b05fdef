package v1

import (
	"errors"
	"net/http"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/domain/user"
	"github.com/helixml/snippets/infrastructure/api/middleware"
	"github.com/helixml/snippets/internal/database"
	applog "github.com/helixml/snippets/internal/log"
)

// BasePath is where the v1 routers are mounted.
const BasePath = "/api/v1"

func identity(client *snippets.Client) func(http.Handler) http.Handler {
	secret, issuer := client.JWT()
	return middleware.Identity(middleware.IdentityConfig{Secret: secret, Issuer: issuer})
}

// currentUser resolves the authenticated caller to a stored user. A caller
// the identity provider has not announced yet is forbidden.
func currentUser(client *snippets.Client, req *http.Request) (user.User, *http.Request, error) {
	externalID, ok := middleware.UserExternalID(req.Context())
	if !ok {
		return user.User{}, req, middleware.NewAuthenticationError("no identity")
	}
	u, err := client.Users.ByExternalID(req.Context(), externalID)
	if errors.Is(err, database.ErrNotFound) {
		return user.User{}, req, middleware.NewAPIError(http.StatusForbidden, "user is not registered", err)
	}
	if err != nil {
		return user.User{}, req, err
	}
	return u, req.WithContext(applog.WithUserID(req.Context(), u.ID())), nil
}
