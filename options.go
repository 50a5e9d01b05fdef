package snippets

import (
	"io"
	"log/slog"
	"time"

	"github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/infrastructure/fetch"
	"github.com/helixml/snippets/infrastructure/provider"
	"github.com/helixml/snippets/infrastructure/queue"
	"github.com/helixml/snippets/infrastructure/websearch"
	"github.com/helixml/snippets/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database               databaseType
	dbPath                 string
	dbDSN                  string
	dataDir                string
	textProvider           provider.TextGenerator
	embeddingProvider      provider.Embedder
	searcher               generation.WebSearcher
	fetcher                generation.PageFetcher
	pipeline               config.PipelineConfig
	logger                 *slog.Logger
	apiKeys                []string
	jwtSecret              string
	jwtIssuer              string
	workerCount            int
	workerPollPeriod       time.Duration
	redis                  *queue.RedisConfig
	skipProviderValidation bool
	closers                []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:          config.DefaultDataDir(),
		pipeline:         config.NewPipelineConfig(),
		workerCount:      config.DefaultWorkerCount,
		workerPollPeriod: config.DefaultWorkerPollPeriod,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database.
// Similarity search runs in process over JSON-encoded vectors.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres configures PostgreSQL with the pgvector extension.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithOpenAIConfig sets one OpenAI-compatible provider for chat and embeddings.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		p := provider.NewOpenAIProviderFromConfig(cfg)
		c.textProvider = p
		c.embeddingProvider = p
	}
}

// WithTextProvider sets the chat completion provider.
func WithTextProvider(p provider.TextGenerator) Option {
	return func(c *clientConfig) {
		c.textProvider = p
	}
}

// WithEmbeddingProvider sets the embedding provider.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = p
	}
}

// WithSerper uses the Serper API for web search.
func WithSerper(apiKey, baseURL string) Option {
	return func(c *clientConfig) {
		c.searcher = websearch.NewSerper(apiKey, baseURL, 0)
	}
}

// WithWebSearcher sets a custom web search backend.
func WithWebSearcher(s generation.WebSearcher) Option {
	return func(c *clientConfig) {
		c.searcher = s
	}
}

// WithPageFetcher sets a custom page fetcher. By default pages are fetched
// over HTTP with the pipeline's timeout and user agents.
func WithPageFetcher(f generation.PageFetcher) Option {
	return func(c *clientConfig) {
		c.fetcher = f
	}
}

// WithPipelineConfig sets the generation pipeline tuning.
func WithPipelineConfig(p config.PipelineConfig) Option {
	return func(c *clientConfig) {
		c.pipeline = p
	}
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithAPIKeys sets the keys accepted on operator endpoints.
func WithAPIKeys(keys ...string) Option {
	return func(c *clientConfig) {
		c.apiKeys = keys
	}
}

// WithJWT sets the HS256 secret and optional issuer used to authenticate
// end users.
func WithJWT(secret, issuer string) Option {
	return func(c *clientConfig) {
		c.jwtSecret = secret
		c.jwtIssuer = issuer
	}
}

// WithWorkerCount sets the number of background worker loops.
func WithWorkerCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithWorkerPollPeriod sets how often idle workers check for new tasks.
// Lower values speed up processing in tests.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.workerPollPeriod = d
		}
	}
}

// WithRedisQueue moves generation tasks onto a Redis stream instead of the
// database task table.
func WithRedisQueue(cfg queue.RedisConfig) Option {
	return func(c *clientConfig) {
		c.redis = &cfg
	}
}

// WithSkipProviderValidation allows a client without generation providers.
// Requests are accepted and queued but no worker runs them. Intended for
// read-only deployments and tests.
func WithSkipProviderValidation() Option {
	return func(c *clientConfig) {
		c.skipProviderValidation = true
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}

func (c *clientConfig) pageFetcher(logger *slog.Logger) generation.PageFetcher {
	if c.fetcher != nil {
		return c.fetcher
	}
	opts := []fetch.Option{
		fetch.WithTimeout(c.pipeline.FetchTimeout()),
		fetch.WithLogger(logger),
	}
	if agents := c.pipeline.UserAgents(); len(agents) > 0 {
		opts = append(opts, fetch.WithUserAgents(agents))
	}
	return fetch.NewFetcher(opts...)
}

func (c *clientConfig) hasProviders() bool {
	return c.textProvider != nil && c.embeddingProvider != nil && c.searcher != nil
}
