package persistence

import (
	"context"
	"log/slog"

	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm"
)

// EmbeddingIndex is an embedding store that can also write embeddings inside
// a caller's transaction.
type EmbeddingIndex interface {
	snippet.EmbeddingStore

	// Insert writes an embedding using tx.
	Insert(tx *gorm.DB, embedding snippet.Embedding) error
}

// NewEmbeddingIndex returns the embedding store suited to the database
// backend: pgvector on PostgreSQL, JSON vectors with in-process search
// everywhere else.
func NewEmbeddingIndex(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (EmbeddingIndex, error) {
	if db.IsPostgres() {
		return NewPgvectorEmbeddingStore(ctx, db, dimension, logger)
	}
	return NewSQLiteEmbeddingStore(db), nil
}
