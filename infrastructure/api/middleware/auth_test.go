package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWriteProtect_ReadsPassWithoutKey(t *testing.T) {
	handler := WriteProtect(NewAuthConfigWithKeys([]string{"secret"}))(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		w := serve(handler, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code, method)
	}
}

func TestWriteProtect_MutatingMethods_RequireKey(t *testing.T) {
	handler := WriteProtect(NewAuthConfigWithKeys([]string{"secret"}))(okHandler())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		w := serve(handler, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)

		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set(APIKeyHeader, "wrong")
		w = serve(handler, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)

		req = httptest.NewRequest(method, "/", nil)
		req.Header.Set(APIKeyHeader, "secret")
		w = serve(handler, req)
		assert.Equal(t, http.StatusOK, w.Code, method)
	}
}

func TestWriteProtect_Disabled_PassesAll(t *testing.T) {
	handler := WriteProtect(NewAuthConfigWithKeys([]string{"", "  "}))(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		w := serve(handler, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code, method)
	}
}

func TestRequireAPIKey(t *testing.T) {
	handler := RequireAPIKey(NewAuthConfigWithKeys([]string{"hook"}))(okHandler())

	w := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(APIKeyHeader, "hook")
	w = serve(handler, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func signed(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserExternalID(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestIdentity_JWT(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := IdentityConfig{Secret: "s3cret", Issuer: "https://clerk.example", Clock: func() time.Time { return now }}
	handler := Identity(cfg)(echoIdentity())

	valid := jwt.RegisteredClaims{
		Subject:   "user_2abc",
		Issuer:    "https://clerk.example",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	cases := map[string]struct {
		header string
		status int
		body   string
	}{
		"valid": {
			header: "Bearer " + signed(t, "s3cret", valid),
			status: http.StatusOK,
			body:   "user_2abc",
		},
		"missing": {status: http.StatusUnauthorized},
		"not bearer": {
			header: "Basic abc",
			status: http.StatusUnauthorized,
		},
		"wrong secret": {
			header: "Bearer " + signed(t, "other", valid),
			status: http.StatusUnauthorized,
		},
		"wrong issuer": {
			header: "Bearer " + signed(t, "s3cret", jwt.RegisteredClaims{Subject: "user_2abc", Issuer: "evil"}),
			status: http.StatusUnauthorized,
		},
		"expired": {
			header: "Bearer " + signed(t, "s3cret", jwt.RegisteredClaims{
				Subject:   "user_2abc",
				Issuer:    "https://clerk.example",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}),
			status: http.StatusUnauthorized,
		},
		"no subject": {
			header: "Bearer " + signed(t, "s3cret", jwt.RegisteredClaims{Issuer: "https://clerk.example"}),
			status: http.StatusUnauthorized,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(handler, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestIdentity_RejectsOtherAlgorithms(t *testing.T) {
	cfg := IdentityConfig{Secret: "s3cret"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = cfg.Validate(token)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestIdentity_TrustedHeader(t *testing.T) {
	handler := Identity(IdentityConfig{})(echoIdentity())

	w := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(IdentityHeader, " user_9 ")
	w = serve(handler, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user_9", w.Body.String())
}
