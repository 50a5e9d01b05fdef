// Package websearch provides a Serper (Google search) client.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/internal/retry"
)

// DefaultBaseURL is the Serper API root.
const DefaultBaseURL = "https://google.serper.dev"

// Serper queries the Serper search API.
type Serper struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSerper creates a Serper client. An empty baseURL uses DefaultBaseURL.
func NewSerper(apiKey, baseURL string, timeout time.Duration) *Serper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Serper{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Q string `json:"q"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns the organic results for query in rank order. Client errors
// other than 429 are marked permanent.
func (s *Serper) Search(ctx context.Context, query string) ([]generation.SearchResult, error) {
	payload, err := json.Marshal(searchRequest{Q: query})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create search request: %w", err))
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]generation.SearchResult, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		results = append(results, generation.SearchResult{Title: o.Title, Link: o.Link, Snippet: o.Snippet})
	}
	return results, nil
}

var _ generation.WebSearcher = (*Serper)(nil)
