package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header names read by the authentication middleware.
const (
	APIKeyHeader     = "X-API-KEY"
	IdentityHeader   = "X-User-External-ID"
	bearerPrefix     = "Bearer "
	authorizationKey = "Authorization"
)

// AuthConfig holds the operator API keys.
type AuthConfig struct {
	keys []string
}

// NewAuthConfigWithKeys creates an AuthConfig. No keys disables key checks.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	var valid []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}
	return AuthConfig{keys: valid}
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool { return len(c.keys) > 0 }

// Valid reports whether key matches a configured key.
func (c AuthConfig) Valid(key string) bool {
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid API key on mutating methods. Reads pass.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if config.Enabled() && !config.Valid(r.Header.Get(APIKeyHeader)) {
				WriteError(w, r, NewAuthenticationError("invalid or missing API key"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPIKey requires a valid API key on every method.
func RequireAPIKey(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Enabled() && !config.Valid(r.Header.Get(APIKeyHeader)) {
				WriteError(w, r, NewAuthenticationError("invalid or missing API key"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityConfig configures end-user authentication. With an empty Secret
// the trusted IdentityHeader is accepted; that mode is for development
// behind a gateway that sets the header.
type IdentityConfig struct {
	Secret string
	Issuer string
	Clock  func() time.Time
}

type identityKey struct{}

// WithUserExternalID stores the authenticated user's external id.
func WithUserExternalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// UserExternalID returns the authenticated user's external id.
func UserExternalID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(string)
	return id, ok && id != ""
}

// Identity authenticates the end user and stores their external id in the
// request context. Requests without a valid identity get 401.
func Identity(config IdentityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := config.Authenticate(r)
			if err != nil {
				WriteError(w, r, err, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserExternalID(r.Context(), id)))
		})
	}
}

// Authenticate resolves the external user id of a request.
func (c IdentityConfig) Authenticate(r *http.Request) (string, error) {
	if c.Secret == "" {
		id := strings.TrimSpace(r.Header.Get(IdentityHeader))
		if id == "" {
			return "", NewAuthenticationError("missing " + IdentityHeader + " header")
		}
		return id, nil
	}

	header := r.Header.Get(authorizationKey)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", NewAuthenticationError("missing bearer token")
	}
	return c.Validate(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
}

// Validate checks an HS256 token and returns its subject.
func (c IdentityConfig) Validate(token string) (string, error) {
	if token == "" {
		return "", NewAuthenticationError("missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.Clock != nil {
		opts = append(opts, jwt.WithTimeFunc(c.Clock))
	}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(c.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", NewAuthenticationError("token expired")
		}
		return "", NewAuthenticationError(fmt.Sprintf("invalid token: %v", err))
	}
	if !parsed.Valid {
		return "", NewAuthenticationError("invalid token")
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", NewAuthenticationError("token has no subject")
	}
	return subject, nil
}
