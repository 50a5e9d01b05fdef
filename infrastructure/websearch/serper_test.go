package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/internal/retry"
)

func TestSerper_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "photosynthesis overview", body["q"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"searchParameters": {"q": "photosynthesis overview"},
			"organic": [
				{"title": "Photosynthesis - Wikipedia", "link": "https://en.wikipedia.org/wiki/Photosynthesis", "snippet": "Photosynthesis is...", "position": 1},
				{"title": "Britannica", "link": "https://www.britannica.com/science/photosynthesis", "snippet": "process", "position": 2}
			]
		}`))
	}))
	defer srv.Close()

	s := NewSerper("secret", srv.URL+"/", time.Second)
	results, err := s.Search(context.Background(), "photosynthesis overview")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Photosynthesis - Wikipedia", results[0].Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Photosynthesis", results[0].Link)
	assert.Equal(t, "Photosynthesis is...", results[0].Snippet)
}

func TestSerper_SearchNoOrganic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"searchParameters": {}}`))
	}))
	defer srv.Close()

	results, err := NewSerper("k", srv.URL, time.Second).Search(context.Background(), "xqzvplm")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSerper_SearchErrors(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			_, err := NewSerper("k", srv.URL, time.Second).Search(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tc.permanent, retry.IsPermanent(err))
		})
	}
}
