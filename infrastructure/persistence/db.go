// Package persistence provides database storage implementations.
package persistence

import (
	"context"
	"errors"

	"github.com/helixml/snippets/internal/database"
)

// embeddingTable holds abstract embeddings on both backends.
const embeddingTable = "snippet_embeddings"

// ErrDimensionMismatch indicates the stored vector column disagrees with the
// configured embedding dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// AutoMigrate runs GORM auto migration for all models.
//
// The embeddings table is only migrated on SQLite; on PostgreSQL it is created
// by NewPgvectorEmbeddingStore because its vector column needs a dimension.
func AutoMigrate(ctx context.Context, db database.Database) error {
	models := []any{
		&UserModel{},
		&SnippetModel{},
		&LikeModel{},
		&SaveModel{},
		&NoteModel{},
		&NotificationModel{},
		&TaskModel{},
		&RunModel{},
	}
	if !db.IsPostgres() {
		models = append(models, &EmbeddingModel{})
	}
	return db.Session(ctx).AutoMigrate(models...)
}
