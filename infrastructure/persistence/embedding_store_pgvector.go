package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/search"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL queries specific to pgvector (extensions, indexes, catalog).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR(64) PRIMARY KEY,
    snippet_id VARCHAR(64) NOT NULL UNIQUE,
    text TEXT NOT NULL,
    embedding VECTOR(%d) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	pgvCreateIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_embedding_idx
ON %s
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvCheckDimensionTemplate = `
SELECT a.atttypmod as dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '%s'
AND a.attname = 'embedding'`
)

// ErrPgvectorInitializationFailed indicates pgvector initialization failed.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// PgEmbeddingModel is an abstract embedding in a native vector column.
type PgEmbeddingModel struct {
	ID        string          `gorm:"column:id"`
	SnippetID string          `gorm:"column:snippet_id"`
	Text      string          `gorm:"column:text"`
	Embedding pgvector.Vector `gorm:"column:embedding"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

// TableName returns the table name.
func (PgEmbeddingModel) TableName() string { return embeddingTable }

type pgEmbeddingMapper struct{}

func (pgEmbeddingMapper) ToDomain(e PgEmbeddingModel) snippet.Embedding {
	return snippet.NewEmbedding(e.ID, e.SnippetID, e.Text, toFloat64(e.Embedding.Slice())).
		WithCreatedAt(e.CreatedAt)
}

func (pgEmbeddingMapper) ToModel(e snippet.Embedding) PgEmbeddingModel {
	return PgEmbeddingModel{
		ID:        e.ID(),
		SnippetID: e.SnippetID(),
		Text:      e.Text(),
		Embedding: pgvector.NewVector(toFloat32(e.Vector())),
		CreatedAt: orNow(e.CreatedAt()),
	}
}

// PgvectorEmbeddingStore implements snippet.EmbeddingStore using the
// PostgreSQL pgvector extension.
type PgvectorEmbeddingStore struct {
	repo      database.Repository[snippet.Embedding, PgEmbeddingModel]
	dimension int
	logger    *slog.Logger
}

// NewPgvectorEmbeddingStore creates a new PgvectorEmbeddingStore, eagerly
// initializing the extension, table and index, and verifying the dimension.
func NewPgvectorEmbeddingStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (*PgvectorEmbeddingStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PgvectorEmbeddingStore{
		repo:      database.NewRepository[snippet.Embedding, PgEmbeddingModel](db, pgEmbeddingMapper{}, "embedding"),
		dimension: dimension,
		logger:    logger,
	}

	rawDB := db.Session(ctx)

	if err := rawDB.Exec(pgvCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// The vector dimension is part of the column type, so the table is
	// created with raw SQL rather than AutoMigrate.
	if err := rawDB.Exec(fmt.Sprintf(pgvCreateTableTemplate, embeddingTable, dimension)).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	if err := rawDB.Exec(fmt.Sprintf(pgvCreateIndexTemplate, embeddingTable, embeddingTable)).Error; err != nil {
		logger.Warn("failed to create index (may already exist)", "error", err)
	}

	var dbDimension int
	result := rawDB.Raw(fmt.Sprintf(pgvCheckDimensionTemplate, embeddingTable)).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != dimension {
		return nil, fmt.Errorf("%w: database has %d, provider has %d", ErrDimensionMismatch, dbDimension, dimension)
	}

	return s, nil
}

// Insert writes an embedding using tx.
func (s *PgvectorEmbeddingStore) Insert(tx *gorm.DB, embedding snippet.Embedding) error {
	if embedding.Dimension() != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, embedding.Dimension(), s.dimension)
	}
	model := s.repo.Mapper().ToModel(embedding)
	return tx.Create(&model).Error
}

// Get retrieves an embedding by id.
func (s *PgvectorEmbeddingStore) Get(ctx context.Context, id string) (snippet.Embedding, error) {
	return s.repo.FindOne(ctx, repository.WithID(id))
}

// ForSnippet retrieves the embedding owned by a snippet.
func (s *PgvectorEmbeddingStore) ForSnippet(ctx context.Context, snippetID string) (snippet.Embedding, error) {
	return s.repo.FindOne(ctx, repository.WithCondition("snippet_id", snippetID))
}

// Nearest orders by cosine distance in the database.
func (s *PgvectorEmbeddingStore) Nearest(ctx context.Context, vector []float64, k int) ([]search.Match, error) {
	if len(vector) == 0 || k <= 0 {
		return []search.Match{}, nil
	}

	query := pgvector.NewVector(toFloat32(vector))

	var rows []struct {
		ID       string  `gorm:"column:id"`
		Distance float64 `gorm:"column:distance"`
	}
	err := s.repo.DB(ctx).
		Table(embeddingTable).
		Select("id, embedding <=> ? AS distance", query).
		Order(clause.Expr{SQL: "embedding <=> ?", Vars: []any{query}}).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("nearest embeddings: %w", err)
	}

	matches := make([]search.Match, len(rows))
	for i, row := range rows {
		// Cosine distance is 1 - cosine similarity.
		matches[i] = search.NewMatch(row.ID, 1-row.Distance)
	}
	return matches, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

var _ EmbeddingIndex = (*PgvectorEmbeddingStore)(nil)
