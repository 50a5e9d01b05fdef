package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm"
)

// SnippetStore implements snippet.SnippetStore using GORM.
type SnippetStore struct {
	database.Repository[snippet.Snippet, SnippetModel]
	embeddings EmbeddingIndex
}

// NewSnippetStore creates a new SnippetStore. Abstract embeddings are written
// through embeddings in the same transaction as their snippet.
func NewSnippetStore(db database.Database, embeddings EmbeddingIndex) SnippetStore {
	return SnippetStore{
		Repository: database.NewRepository[snippet.Snippet, SnippetModel](db, SnippetMapper{}, "snippet"),
		embeddings: embeddings,
	}
}

// Get retrieves a snippet by id.
func (s SnippetStore) Get(ctx context.Context, id string) (snippet.Snippet, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// Create inserts the snippet and, when present, its abstract embedding. Either
// both rows exist afterwards or neither does.
func (s SnippetStore) Create(ctx context.Context, sn snippet.Snippet, embedding *snippet.Embedding) (snippet.Snippet, error) {
	if embedding != nil {
		sn = sn.WithAbstractEmbeddingID(embedding.ID())
	}
	model := s.Mapper().ToModel(sn)

	err := database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("create snippet: %w", err)
		}
		if embedding == nil {
			return nil
		}
		if err := s.embeddings.Insert(tx, embedding.ForSnippet(sn.ID())); err != nil {
			return fmt.Errorf("create abstract embedding: %w", err)
		}
		return nil
	})
	if err != nil {
		return snippet.Snippet{}, err
	}

	return s.Mapper().ToDomain(model), nil
}

var _ snippet.SnippetStore = SnippetStore{}
