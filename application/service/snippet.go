package service

import (
	"context"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/snippet"
)

// SnippetListParams configures snippet listing.
type SnippetListParams struct {
	Sort snippet.Sort
	Page Page
}

// Snippet provides snippet query operations.
type Snippet struct {
	snippetStore snippet.SnippetStore
}

// NewSnippet creates a new Snippet service.
func NewSnippet(snippetStore snippet.SnippetStore) *Snippet {
	return &Snippet{
		snippetStore: snippetStore,
	}
}

// Get retrieves a single snippet by id.
func (s *Snippet) Get(ctx context.Context, id string) (snippet.Snippet, error) {
	return s.snippetStore.Get(ctx, id)
}

// List returns one page of snippets, newest or most liked first.
func (s *Snippet) List(ctx context.Context, params SnippetListParams) ([]snippet.Snippet, error) {
	page := params.Page.normalized()
	options := params.Sort.Options()
	options = append(options, repository.WithPage(page.Number, page.Size)...)
	return s.snippetStore.Find(ctx, options...)
}

// Count returns the total number of snippets.
func (s *Snippet) Count(ctx context.Context) (int64, error) {
	return s.snippetStore.Count(ctx)
}
