package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
)

type fakeSnippets struct {
	items      []snippet.Snippet
	lastParams service.SnippetListParams
}

func (f *fakeSnippets) Get(_ context.Context, id string) (snippet.Snippet, error) {
	for _, s := range f.items {
		if s.ID() == id {
			return s, nil
		}
	}
	return snippet.Snippet{}, fmt.Errorf("%w: snippet %s", database.ErrNotFound, id)
}

func (f *fakeSnippets) List(_ context.Context, params service.SnippetListParams) ([]snippet.Snippet, error) {
	f.lastParams = params
	return f.items, nil
}

type fakeSimilarity struct {
	summaries map[string][]snippet.Summary
}

func (f *fakeSimilarity) ForSnippet(_ context.Context, id string) ([]snippet.Summary, error) {
	s, ok := f.summaries[id]
	if !ok {
		return nil, fmt.Errorf("%w: snippet %s", database.ErrNotFound, id)
	}
	return s, nil
}

func testSnippet() snippet.Snippet {
	return snippet.NewSnippet("sn-1", "Octopus intelligence", snippet.Content{
		What: []string{"Octopuses solve puzzles."},
		How:  []string{"Distributed neurons in each arm."},
	}).
		WithAbstract("Octopuses are clever.").
		WithTags([]string{"biology"}).
		WithReferences([]snippet.Reference{{Link: "https://example.com/octopus", Title: "Octopus"}}).
		WithLikesCount(3).
		WithCreatedAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func testServer() (*Server, *fakeSnippets) {
	snippets := &fakeSnippets{items: []snippet.Snippet{testSnippet()}}
	similarity := &fakeSimilarity{summaries: map[string][]snippet.Summary{
		"sn-1": {{ID: "sn-2", Title: "Squid", Abstract: "Squid too.", Tags: []string{"biology"}}},
	}}
	return NewServer(snippets, similarity, "0.1.0-test", nil), snippets
}

// sendMessage sends a JSON-RPC request through HandleMessage and returns the
// response.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	result := srv.MCPServer().HandleMessage(context.Background(), raw)
	resp, ok := result.(mcp.JSONRPCResponse)
	require.Truef(t, ok, "expected JSONRPCResponse, got %T: %+v", result, result)
	return resp
}

// callTool initializes the session and invokes a tool.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) mcp.CallToolResult {
	t.Helper()
	sendMessage(t, srv, "initialize", 1, initializeParams())
	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      name,
		"arguments": args,
	})
	var result mcp.CallToolResult
	resultJSON(t, resp, &result)
	return result
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

// textFromContent extracts the text of the first content item. It
// round-trips through JSON because in-process responses may hold the content
// as a map rather than a typed struct.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	b, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var tc struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(b, &tc))
	return tc.Text
}

func TestServer_Initialize(t *testing.T) {
	srv, _ := testServer()
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	assert.Equal(t, "snippets", result.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", result.ServerInfo.Version)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())
	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	require.Len(t, tools, 4)
	for _, name := range []string{"get_snippet", "list_snippets", "similar_snippets", "get_version"} {
		assert.Contains(t, tools, name)
	}
	assert.Contains(t, tools["get_snippet"].InputSchema.Required, "id")
	assert.Contains(t, tools["list_snippets"].InputSchema.Properties, "sort")
}

func TestServer_GetSnippet(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "get_snippet", map[string]any{"id": "sn-1"})
	require.False(t, result.IsError, textFromContent(t, result))

	var got snippetResult
	require.NoError(t, json.Unmarshal([]byte(textFromContent(t, result)), &got))
	assert.Equal(t, "Octopus intelligence", got.Title)
	assert.Equal(t, []string{"Octopuses solve puzzles."}, got.Content.What)
	assert.Equal(t, []string{}, got.Content.Why)
	assert.Equal(t, 3, got.LikesCount)
	assert.Equal(t, "2025-01-01T00:00:00Z", got.CreatedAt)
	require.Len(t, got.References, 1)
	assert.Equal(t, "https://example.com/octopus", got.References[0].Link)
}

func TestServer_GetSnippetNotFound(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "get_snippet", map[string]any{"id": "missing"})
	assert.True(t, result.IsError)
	assert.Contains(t, textFromContent(t, result), "snippet not found")
}

func TestServer_GetSnippetMissingID(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "get_snippet", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, textFromContent(t, result), "id is required")
}

func TestServer_ListSnippets(t *testing.T) {
	srv, snippets := testServer()
	result := callTool(t, srv, "list_snippets", map[string]any{"sort": "trending", "page": 2, "page_size": 5})
	require.False(t, result.IsError)

	var got []snippetResult
	require.NoError(t, json.Unmarshal([]byte(textFromContent(t, result)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sn-1", got[0].ID)

	assert.Equal(t, snippet.SortTrending, snippets.lastParams.Sort)
	assert.Equal(t, service.Page{Number: 2, Size: 5}, snippets.lastParams.Page)
}

func TestServer_SimilarSnippets(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "similar_snippets", map[string]any{"id": "sn-1"})
	require.False(t, result.IsError)

	var got []snippet.Summary
	require.NoError(t, json.Unmarshal([]byte(textFromContent(t, result)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sn-2", got[0].ID)
}

func TestServer_SimilarSnippetsUnknown(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "similar_snippets", map[string]any{"id": "nope"})
	assert.True(t, result.IsError)
}

func TestServer_GetVersion(t *testing.T) {
	srv, _ := testServer()
	result := callTool(t, srv, "get_version", map[string]any{})
	require.False(t, result.IsError)
	assert.Equal(t, "0.1.0-test", textFromContent(t, result))
}

var (
	_ SnippetQuery    = (*fakeSnippets)(nil)
	_ SimilarityQuery = (*fakeSimilarity)(nil)
)
