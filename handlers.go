package snippets

import (
	"fmt"
	"log/slog"

	generationhandler "github.com/helixml/snippets/application/handler/generation"
	"github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/infrastructure/chunking"
	"github.com/helixml/snippets/infrastructure/provider"
	"github.com/helixml/snippets/internal/retry"
)

// registerHandlers builds the generation pipeline and registers it with the
// worker registry.
func (c *Client) registerHandlers(cfg *clientConfig) error {
	pipeline := cfg.pipeline
	policy := retry.Policy{
		Attempts: pipeline.StageMaxAttempts(),
		Delay:    pipeline.StageRetryDelay(),
		Backoff:  2,
	}

	chunkParams := chunking.DefaultChunkParams()
	chunkParams.Size = pipeline.ChunkSize()
	chunkParams.Overlap = pipeline.ChunkOverlap()
	chunker, err := chunking.NewChunker(chunkParams)
	if err != nil {
		return fmt.Errorf("create chunker: %w", err)
	}

	completer := provider.NewCompleter(cfg.textProvider)
	embedder := provider.NewTextEmbedder(cfg.embeddingProvider)

	sourceOpts := []generation.SourceOption{
		generation.WithSourceLimit(pipeline.SourceLimit()),
		generation.WithMinSourceChars(pipeline.MinSourceChars()),
		generation.WithSourceLogger(c.logger),
	}
	if domains := pipeline.ExcludedDomains(); len(domains) > 0 {
		sourceOpts = append(sourceOpts, generation.WithExcludedDomains(domains))
	}

	stages := generationhandler.Stages{
		Topics:  generation.NewTopicRefiner(completer, pipeline.TopicModel(), pipeline.TopicPrompt()),
		Sources: generation.NewSourceGatherer(cfg.searcher, cfg.pageFetcher(c.logger), sourceOpts...),
		Vectorizer: generation.NewChunkVectorizer(chunker, embedder,
			generation.WithTopK(pipeline.ChunkTopK()),
			generation.WithEmbedRetry(policy),
			generation.WithVectorizerLogger(c.logger),
		),
		Synthesizer: generation.NewSynthesizer(completer, pipeline.SnippetModel(), pipeline.SnippetPrompt()),
		Indexer:     generation.NewEmbeddingIndexer(embedder, pipeline.EmbeddingDimension()),
	}
	stores := generationhandler.Stores{
		Users:         c.stores.users,
		Snippets:      c.stores.snippets,
		Notifications: c.stores.notifications,
		Runs:          c.stores.runs,
	}

	h, err := generationhandler.NewGenerateSnippet(stages, stores, policy, c.logger)
	if err != nil {
		return fmt.Errorf("create generate snippet handler: %w", err)
	}
	c.registry.Register(task.OperationGenerateSnippet, h)

	c.logger.Info("registered task handlers", slog.Int("count", len(c.registry.Operations())))
	return nil
}
