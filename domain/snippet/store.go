package snippet

import (
	"context"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/search"
)

// Sort orders snippet listings.
type Sort string

// Sort values.
const (
	SortNew      Sort = "new"
	SortTrending Sort = "trending"
)

// ParseSort maps a query parameter to a Sort, defaulting to SortNew.
func ParseSort(s string) Sort {
	if Sort(s) == SortTrending {
		return SortTrending
	}
	return SortNew
}

// Options returns the ordering options for the sort.
// Trending is likes first, newest breaking ties.
func (s Sort) Options() []repository.Option {
	if s == SortTrending {
		return []repository.Option{
			repository.WithOrderDesc("likes_count"),
			repository.WithOrderDesc("created_at"),
		}
	}
	return []repository.Option{repository.WithOrderDesc("created_at")}
}

// WithRequestID filters by generation request id.
func WithRequestID(id string) repository.Option {
	return repository.WithCondition("request_id", id)
}

// WithRequestedBy filters by requesting user id.
func WithRequestedBy(userID string) repository.Option {
	return repository.WithCondition("requested_by", userID)
}

// SnippetStore persists snippets.
type SnippetStore interface {
	// Get retrieves a snippet by id.
	Get(ctx context.Context, id string) (Snippet, error)

	// Find retrieves snippets matching the options.
	Find(ctx context.Context, options ...repository.Option) ([]Snippet, error)

	// FindOne retrieves the first snippet matching the options.
	FindOne(ctx context.Context, options ...repository.Option) (Snippet, error)

	// Count returns the number of snippets matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// Create inserts a snippet and, when present, its abstract embedding in
	// one transaction.
	Create(ctx context.Context, snippet Snippet, embedding *Embedding) (Snippet, error)
}

// EmbeddingStore reads abstract embeddings and answers nearest-neighbour queries.
type EmbeddingStore interface {
	// Get retrieves an embedding by id.
	Get(ctx context.Context, id string) (Embedding, error)

	// ForSnippet retrieves the embedding owned by a snippet.
	ForSnippet(ctx context.Context, snippetID string) (Embedding, error)

	// Nearest returns the k embeddings closest to vector, nearest first.
	// Match ids are embedding ids.
	Nearest(ctx context.Context, vector []float64, k int) ([]search.Match, error)
}
