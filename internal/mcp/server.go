// Package mcp exposes snippets to Model Context Protocol clients.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
)

// SnippetQuery reads snippets for MCP tools.
type SnippetQuery interface {
	Get(ctx context.Context, id string) (snippet.Snippet, error)
	List(ctx context.Context, params service.SnippetListParams) ([]snippet.Snippet, error)
}

// SimilarityQuery finds related snippets for MCP tools.
type SimilarityQuery interface {
	ForSnippet(ctx context.Context, snippetID string) ([]snippet.Summary, error)
}

// Server wraps the MCP server with the snippet tools.
type Server struct {
	mcpServer  *server.MCPServer
	snippets   SnippetQuery
	similarity SimilarityQuery
	version    string
	logger     *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(snippets SnippetQuery, similarity SimilarityQuery, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		snippets:   snippets,
		similarity: similarity,
		version:    version,
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"snippets",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("get_snippet",
		mcp.WithDescription("Get a 5W1H snippet (what, when, where, why, how and amazing facts) by its ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The snippet ID"),
		),
	), s.handleGetSnippet)

	mcpServer.AddTool(mcp.NewTool("list_snippets",
		mcp.WithDescription("List snippets, newest or most liked first"),
		mcp.WithString("sort",
			mcp.Description("Ordering: new (default) or trending"),
			mcp.Enum(string(snippet.SortNew), string(snippet.SortTrending)),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number starting at 1 (default: 1)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description(fmt.Sprintf("Results per page (default: %d, max: %d)", service.DefaultPageSize, service.MaxPageSize)),
		),
	), s.handleListSnippets)

	mcpServer.AddTool(mcp.NewTool("similar_snippets",
		mcp.WithDescription("Find snippets whose abstracts are closest to the given snippet"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The snippet ID"),
		),
	), s.handleSimilarSnippets)

	mcpServer.AddTool(mcp.NewTool("get_version",
		mcp.WithDescription("Get the snippets server version"),
	), s.handleGetVersion)
}

type snippetResult struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Content       snippet.Content     `json:"content"`
	Abstract      string              `json:"abstract"`
	Tags          []string            `json:"tags"`
	References    []snippet.Reference `json:"references"`
	LikesCount    int                 `json:"likes_count"`
	RequestorName string              `json:"requestor_name"`
	CreatedAt     string              `json:"created_at"`
}

func newSnippetResult(s snippet.Snippet) snippetResult {
	refs := s.References()
	if refs == nil {
		refs = []snippet.Reference{}
	}
	tags := s.Tags()
	if tags == nil {
		tags = []string{}
	}
	return snippetResult{
		ID:            s.ID(),
		Title:         s.Title(),
		Content:       s.Content(),
		Abstract:      s.Abstract(),
		Tags:          tags,
		References:    refs,
		LikesCount:    s.LikesCount(),
		RequestorName: s.RequestorName(),
		CreatedAt:     s.CreatedAt().UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleGetSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}

	sn, err := s.snippets.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("snippet not found: %s", id)), nil
	}
	if err != nil {
		s.logger.Error("failed to get snippet", slog.String("id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to get snippet: %v", err)), nil
	}

	return jsonResult(newSnippetResult(sn))
}

func (s *Server) handleListSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := service.SnippetListParams{
		Sort: snippet.ParseSort(request.GetString("sort", "")),
		Page: service.Page{
			Number: request.GetInt("page", 1),
			Size:   request.GetInt("page_size", service.DefaultPageSize),
		},
	}

	items, err := s.snippets.List(ctx, params)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to list snippets: %v", err)), nil
	}

	results := make([]snippetResult, len(items))
	for i, sn := range items {
		results[i] = newSnippetResult(sn)
	}
	return jsonResult(results)
}

func (s *Server) handleSimilarSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}

	summaries, err := s.similarity.ForSnippet(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("snippet not found: %s", id)), nil
	}
	if err != nil {
		s.logger.Error("similarity lookup failed", slog.String("id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("similarity lookup failed: %v", err)), nil
	}
	if summaries == nil {
		summaries = []snippet.Summary{}
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// MCPServer returns the underlying MCP server for HTTP or stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
