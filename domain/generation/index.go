package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/helixml/snippets/domain/snippet"
)

// EmbeddingIndexer embeds a snippet abstract for similarity search.
type EmbeddingIndexer struct {
	embedder  Embedder
	dimension int
}

// NewEmbeddingIndexer creates an EmbeddingIndexer expecting vectors of the
// given dimension.
func NewEmbeddingIndexer(embedder Embedder, dimension int) *EmbeddingIndexer {
	return &EmbeddingIndexer{embedder: embedder, dimension: dimension}
}

// Index embeds abstract. An empty abstract yields ok=false and no error.
// The returned embedding has a fresh id and no snippet yet.
func (x *EmbeddingIndexer) Index(ctx context.Context, abstract string) (emb snippet.Embedding, ok bool, err error) {
	abstract = strings.TrimSpace(abstract)
	if abstract == "" {
		return snippet.Embedding{}, false, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{abstract})
	if err != nil {
		return snippet.Embedding{}, false, fmt.Errorf("embed abstract: %w", err)
	}
	if len(vectors) != 1 {
		return snippet.Embedding{}, false, fmt.Errorf("embed abstract: got %d vectors", len(vectors))
	}
	if len(vectors[0]) != x.dimension {
		return snippet.Embedding{}, false, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vectors[0]), x.dimension)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return snippet.Embedding{}, false, fmt.Errorf("allocate embedding id: %w", err)
	}
	return snippet.NewEmbedding(id.String(), "", abstract, vectors[0]), true, nil
}
