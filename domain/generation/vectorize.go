package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/helixml/snippets/domain/search"
	"github.com/helixml/snippets/internal/retry"
)

// SourceChunks is the part of a source most relevant to the query.
type SourceChunks struct {
	Source Source
	// Chunks are ordered most relevant first.
	Chunks []string
}

// ChunkVectorizer ranks a source's chunks against the query.
type ChunkVectorizer struct {
	chunker  Chunker
	embedder Embedder
	topK     int
	policy   retry.Policy
	logger   *slog.Logger
}

// VectorizerOption configures a ChunkVectorizer.
type VectorizerOption func(*ChunkVectorizer)

// WithTopK keeps the k most relevant chunks of each source.
func WithTopK(k int) VectorizerOption {
	return func(v *ChunkVectorizer) {
		if k > 0 {
			v.topK = k
		}
	}
}

// WithEmbedRetry wraps each source's embedding call in policy.
func WithEmbedRetry(policy retry.Policy) VectorizerOption {
	return func(v *ChunkVectorizer) { v.policy = policy }
}

// WithVectorizerLogger sets the logger for dropped sources.
func WithVectorizerLogger(l *slog.Logger) VectorizerOption {
	return func(v *ChunkVectorizer) { v.logger = l }
}

// NewChunkVectorizer creates a ChunkVectorizer.
func NewChunkVectorizer(chunker Chunker, embedder Embedder, opts ...VectorizerOption) *ChunkVectorizer {
	v := &ChunkVectorizer{
		chunker:  chunker,
		embedder: embedder,
		topK:     5,
		policy:   retry.Policy{Attempts: 1},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Vectorize embeds the query and the source's chunks in one call and returns
// the topK chunks by cosine similarity. A source without chunks yields an
// empty result.
func (v *ChunkVectorizer) Vectorize(ctx context.Context, query string, source Source) (SourceChunks, error) {
	chunks, err := v.chunker.Chunk(source.Text)
	if err != nil {
		return SourceChunks{}, fmt.Errorf("chunk %s: %w", source.Link, err)
	}
	if len(chunks) == 0 {
		return SourceChunks{Source: source}, nil
	}

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, query)
	texts = append(texts, chunks...)

	vectors, err := retry.DoValue(ctx, v.policy, func(ctx context.Context) ([][]float64, error) {
		return v.embedder.Embed(ctx, texts)
	})
	if err != nil {
		return SourceChunks{}, fmt.Errorf("embed %s: %w", source.Link, err)
	}
	if len(vectors) != len(texts) {
		return SourceChunks{}, fmt.Errorf("embed %s: got %d vectors for %d texts", source.Link, len(vectors), len(texts))
	}

	stored := make([]search.StoredVector, len(chunks))
	for i := range chunks {
		stored[i] = search.NewStoredVector(strconv.Itoa(i), vectors[i+1])
	}

	matches := search.TopK(vectors[0], stored, v.topK)
	ranked := make([]string, 0, len(matches))
	for _, m := range matches {
		i, _ := strconv.Atoi(m.ID())
		ranked = append(ranked, chunks[i])
	}
	return SourceChunks{Source: source, Chunks: ranked}, nil
}

// VectorizeAll vectorizes every source concurrently. Sources that fail or
// produce no chunks are dropped; the result keeps source order and may be
// empty.
func (v *ChunkVectorizer) VectorizeAll(ctx context.Context, query string, sources []Source) ([]SourceChunks, error) {
	results := make([]SourceChunks, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		eg.Go(func() error {
			sc, err := v.Vectorize(egCtx, query, src)
			if err != nil {
				v.logger.WarnContext(ctx, "dropping source from context", slog.String("link", src.Link), slog.Any("error", err))
				return nil
			}
			results[i] = sc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := make([]SourceChunks, 0, len(results))
	for _, sc := range results {
		if len(sc.Chunks) > 0 {
			kept = append(kept, sc)
		}
	}
	return kept, nil
}
