// Package generation provides the stages of the snippet generation pipeline:
// topic refinement, source gathering, chunk vectorization, synthesis and
// abstract embedding. Stages call external services through the small
// interfaces below and never retry on their own.
package generation

import (
	"context"
	"errors"
)

// Terminal outcomes of a stage.
var (
	// ErrNoSources indicates the web search produced no usable source.
	ErrNoSources = errors.New("no usable sources")

	// ErrInsufficientInformation indicates the model declined to summarize.
	ErrInsufficientInformation = errors.New("insufficient information")

	// ErrDimensionMismatch indicates an embedding of the wrong size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	Model  string
	System string
	User   string
	// JSON asks the model for a JSON object response.
	JSON bool
}

// Completer runs chat completions.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string
	Link    string
	Snippet string
}

// WebSearcher queries a web search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// PageFetcher downloads a page and returns its visible text.
type PageFetcher interface {
	Fetch(ctx context.Context, link string) (string, error)
}

// Chunker splits text into overlapping chunks.
type Chunker interface {
	Chunk(text string) ([]string, error)
}
