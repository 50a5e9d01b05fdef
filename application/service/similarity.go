package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
)

// Neighbour budget and result size of similarity search.
const (
	DefaultSimilarNeighbours = 6
	MaxSimilarResults        = 5
)

// Similarity finds snippets whose abstracts are close to a given one.
type Similarity struct {
	snippets   snippet.SnippetStore
	embeddings snippet.EmbeddingStore
	neighbours int
	logger     *slog.Logger
}

// NewSimilarity creates a Similarity service. Neighbours below one use
// DefaultSimilarNeighbours.
func NewSimilarity(snippets snippet.SnippetStore, embeddings snippet.EmbeddingStore, neighbours int, logger *slog.Logger) *Similarity {
	if neighbours < 1 {
		neighbours = DefaultSimilarNeighbours
	}
	return &Similarity{snippets: snippets, embeddings: embeddings, neighbours: neighbours, logger: logger}
}

// ForSnippet returns up to five snippets similar to the given one, nearest
// first. A snippet without an embedding has no similar snippets.
func (s *Similarity) ForSnippet(ctx context.Context, snippetID string) ([]snippet.Summary, error) {
	emb, err := s.embeddings.ForSnippet(ctx, snippetID)
	if errors.Is(err, database.ErrNotFound) {
		return []snippet.Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load embedding of snippet %s: %w", snippetID, err)
	}
	return s.similar(ctx, emb)
}

// ForEmbedding is ForSnippet addressed by embedding id.
func (s *Similarity) ForEmbedding(ctx context.Context, embeddingID string) ([]snippet.Summary, error) {
	emb, err := s.embeddings.Get(ctx, embeddingID)
	if errors.Is(err, database.ErrNotFound) {
		return []snippet.Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load embedding %s: %w", embeddingID, err)
	}
	return s.similar(ctx, emb)
}

func (s *Similarity) similar(ctx context.Context, emb snippet.Embedding) ([]snippet.Summary, error) {
	matches, err := s.embeddings.Nearest(ctx, emb.Vector(), s.neighbours)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}

	summaries := make([]snippet.Summary, 0, MaxSimilarResults)
	for _, m := range matches {
		if len(summaries) == MaxSimilarResults {
			break
		}
		if m.ID() == emb.ID() {
			continue
		}
		neighbour, err := s.embeddings.Get(ctx, m.ID())
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load neighbour %s: %w", m.ID(), err)
		}
		if neighbour.SnippetID() == emb.SnippetID() {
			continue
		}
		sn, err := s.snippets.Get(ctx, neighbour.SnippetID())
		if errors.Is(err, database.ErrNotFound) {
			s.logger.DebugContext(ctx, "dropping neighbour without snippet", slog.String("embedding_id", m.ID()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load snippet %s: %w", neighbour.SnippetID(), err)
		}
		summaries = append(summaries, sn.Summary())
	}
	return summaries, nil
}
