package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/search"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm"
)

// SQLiteEmbeddingStore keeps vectors as JSON and ranks them in process.
type SQLiteEmbeddingStore struct {
	repo database.Repository[snippet.Embedding, EmbeddingModel]
}

// NewSQLiteEmbeddingStore creates a new SQLiteEmbeddingStore.
func NewSQLiteEmbeddingStore(db database.Database) *SQLiteEmbeddingStore {
	return &SQLiteEmbeddingStore{
		repo: database.NewRepository[snippet.Embedding, EmbeddingModel](db, EmbeddingMapper{}, "embedding"),
	}
}

// Insert writes an embedding using tx.
func (s *SQLiteEmbeddingStore) Insert(tx *gorm.DB, embedding snippet.Embedding) error {
	model := s.repo.Mapper().ToModel(embedding)
	return tx.Create(&model).Error
}

// Get retrieves an embedding by id.
func (s *SQLiteEmbeddingStore) Get(ctx context.Context, id string) (snippet.Embedding, error) {
	return s.repo.FindOne(ctx, repository.WithID(id))
}

// ForSnippet retrieves the embedding owned by a snippet.
func (s *SQLiteEmbeddingStore) ForSnippet(ctx context.Context, snippetID string) (snippet.Embedding, error) {
	return s.repo.FindOne(ctx, repository.WithCondition("snippet_id", snippetID))
}

// Nearest loads every vector and returns the k most cosine-similar.
func (s *SQLiteEmbeddingStore) Nearest(ctx context.Context, vector []float64, k int) ([]search.Match, error) {
	if len(vector) == 0 || k <= 0 {
		return []search.Match{}, nil
	}

	var models []EmbeddingModel
	err := s.repo.DB(ctx).Select("id", "vector").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	stored := make([]search.StoredVector, len(models))
	for i, m := range models {
		stored[i] = search.NewStoredVector(m.ID, m.Vector)
	}

	return search.TopK(vector, stored, k), nil
}

var _ EmbeddingIndex = (*SQLiteEmbeddingStore)(nil)
