// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8080
	DefaultLogLevel           = "INFO"
	DefaultWorkerCount        = 2
	DefaultWorkerPollPeriod   = time.Second
	DefaultChatBaseURL        = "https://api.groq.com/openai/v1"
	DefaultChatModel          = "llama3-70b-8192"
	DefaultEmbeddingBaseURL   = "https://api.openai.com/v1"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 768
	DefaultEndpointTimeout    = 60 * time.Second
	DefaultSearchBaseURL      = "https://google.serper.dev"
	DefaultSourceLimit        = 5
	DefaultMinSourceChars     = 150
	DefaultFetchTimeout       = 5 * time.Second
	DefaultChunkSize          = 250
	DefaultChunkOverlap       = 100
	DefaultChunkTopK          = 5
	DefaultStageMaxAttempts   = 3
	DefaultStageRetryDelay    = time.Second
	DefaultJobMaxAttempts     = 3
	DefaultSimilarNeighbours  = 6
	DefaultQueueBackend       = QueueBackendDatabase
	DefaultRedisStream        = "snippets:generation"
	DefaultRedisGroup         = "snippets"
	DefaultRedisClaimIdle     = 5 * time.Minute
	defaultDataDirName        = ".snippets"
	defaultDatabaseFile       = "snippets.db"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// QueueBackend selects where generation tasks wait for a worker.
type QueueBackend string

// QueueBackend values.
const (
	QueueBackendDatabase QueueBackend = "database"
	QueueBackendRedis    QueueBackend = "redis"
)

// Endpoint configures an OpenAI-compatible AI service.
type Endpoint struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(baseURL, model, apiKey string, timeout time.Duration) Endpoint {
	if timeout <= 0 {
		timeout = DefaultEndpointTimeout
	}
	return Endpoint{baseURL: baseURL, model: model, apiKey: apiKey, timeout: timeout}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// IsConfigured returns true if the endpoint has credentials.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != ""
}

// PipelineConfig tunes the snippet generation pipeline.
type PipelineConfig struct {
	topicModel         string
	snippetModel       string
	topicPrompt        string
	snippetPrompt      string
	embeddingDimension int
	sourceLimit        int
	minSourceChars     int
	fetchTimeout       time.Duration
	chunkSize          int
	chunkOverlap       int
	chunkTopK          int
	stageMaxAttempts   int
	stageRetryDelay    time.Duration
	jobMaxAttempts     int
	similarNeighbours  int
	excludedDomains    []string
	userAgents         []string
}

// NewPipelineConfig returns the pipeline defaults. Empty prompts, models,
// domains and user agents mean "use the built-in value".
func NewPipelineConfig() PipelineConfig {
	return PipelineConfig{
		embeddingDimension: DefaultEmbeddingDimension,
		sourceLimit:        DefaultSourceLimit,
		minSourceChars:     DefaultMinSourceChars,
		fetchTimeout:       DefaultFetchTimeout,
		chunkSize:          DefaultChunkSize,
		chunkOverlap:       DefaultChunkOverlap,
		chunkTopK:          DefaultChunkTopK,
		stageMaxAttempts:   DefaultStageMaxAttempts,
		stageRetryDelay:    DefaultStageRetryDelay,
		jobMaxAttempts:     DefaultJobMaxAttempts,
		similarNeighbours:  DefaultSimilarNeighbours,
	}
}

// TopicModel returns the model override for topic refinement.
func (p PipelineConfig) TopicModel() string { return p.topicModel }

// SnippetModel returns the model override for synthesis.
func (p PipelineConfig) SnippetModel() string { return p.snippetModel }

// TopicPrompt returns the topic prompt override.
func (p PipelineConfig) TopicPrompt() string { return p.topicPrompt }

// SnippetPrompt returns the synthesis prompt override.
func (p PipelineConfig) SnippetPrompt() string { return p.snippetPrompt }

// EmbeddingDimension returns the abstract vector dimension.
func (p PipelineConfig) EmbeddingDimension() int { return p.embeddingDimension }

// SourceLimit returns the maximum number of web sources per job.
func (p PipelineConfig) SourceLimit() int { return p.sourceLimit }

// MinSourceChars returns the minimum stripped text length of a usable source.
func (p PipelineConfig) MinSourceChars() int { return p.minSourceChars }

// FetchTimeout returns the hard timeout of a single page fetch attempt.
func (p PipelineConfig) FetchTimeout() time.Duration { return p.fetchTimeout }

// ChunkSize returns the chunk size in runes.
func (p PipelineConfig) ChunkSize() int { return p.chunkSize }

// ChunkOverlap returns the chunk overlap in runes.
func (p PipelineConfig) ChunkOverlap() int { return p.chunkOverlap }

// ChunkTopK returns how many chunks are kept per source.
func (p PipelineConfig) ChunkTopK() int { return p.chunkTopK }

// StageMaxAttempts returns the attempts allowed for each external call.
func (p PipelineConfig) StageMaxAttempts() int { return p.stageMaxAttempts }

// StageRetryDelay returns the first backoff delay for external calls.
func (p PipelineConfig) StageRetryDelay() time.Duration { return p.stageRetryDelay }

// JobMaxAttempts returns how many times a whole job may run.
func (p PipelineConfig) JobMaxAttempts() int { return p.jobMaxAttempts }

// SimilarNeighbours returns the neighbour budget of a similarity query.
func (p PipelineConfig) SimilarNeighbours() int { return p.similarNeighbours }

// ExcludedDomains returns the host blocklist override.
func (p PipelineConfig) ExcludedDomains() []string { return copyStrings(p.excludedDomains) }

// UserAgents returns the fetcher user agent override.
func (p PipelineConfig) UserAgents() []string { return copyStrings(p.userAgents) }

// WithModels returns a copy with topic and synthesis model overrides.
func (p PipelineConfig) WithModels(topic, snippet string) PipelineConfig {
	p.topicModel = topic
	p.snippetModel = snippet
	return p
}

// WithPrompts returns a copy with topic and synthesis prompt overrides.
func (p PipelineConfig) WithPrompts(topic, snippet string) PipelineConfig {
	p.topicPrompt = topic
	p.snippetPrompt = snippet
	return p
}

// WithEmbeddingDimension returns a copy with a different vector dimension.
func (p PipelineConfig) WithEmbeddingDimension(n int) PipelineConfig {
	p.embeddingDimension = n
	return p
}

// WithSources returns a copy with different source limits.
func (p PipelineConfig) WithSources(limit, minChars int, fetchTimeout time.Duration) PipelineConfig {
	p.sourceLimit = limit
	p.minSourceChars = minChars
	p.fetchTimeout = fetchTimeout
	return p
}

// WithChunking returns a copy with different chunking parameters.
func (p PipelineConfig) WithChunking(size, overlap, topK int) PipelineConfig {
	p.chunkSize = size
	p.chunkOverlap = overlap
	p.chunkTopK = topK
	return p
}

// WithStageRetry returns a copy with a different per-call retry policy.
func (p PipelineConfig) WithStageRetry(attempts int, delay time.Duration) PipelineConfig {
	p.stageMaxAttempts = attempts
	p.stageRetryDelay = delay
	return p
}

// WithJobMaxAttempts returns a copy with a different whole-job attempt limit.
func (p PipelineConfig) WithJobMaxAttempts(n int) PipelineConfig {
	p.jobMaxAttempts = n
	return p
}

// WithSimilarNeighbours returns a copy with a different neighbour budget.
func (p PipelineConfig) WithSimilarNeighbours(n int) PipelineConfig {
	p.similarNeighbours = n
	return p
}

// WithExcludedDomains returns a copy with a different host blocklist.
func (p PipelineConfig) WithExcludedDomains(domains []string) PipelineConfig {
	p.excludedDomains = copyStrings(domains)
	return p
}

// WithUserAgents returns a copy with a different user agent rotation.
func (p PipelineConfig) WithUserAgents(agents []string) PipelineConfig {
	p.userAgents = copyStrings(agents)
	return p
}

// WithRedis returns a copy that selects the Redis stream backend.
func (q QueueConfig) WithRedis(addr, password string, db int) QueueConfig {
	q.backend = QueueBackendRedis
	q.redisAddr = addr
	q.redisPassword = password
	q.redisDB = db
	return q
}

// QueueConfig selects and configures the task transport.
type QueueConfig struct {
	backend       QueueBackend
	redisAddr     string
	redisPassword string
	redisDB       int
	redisStream   string
	redisGroup    string
	claimIdle     time.Duration
}

// NewQueueConfig returns the database-backed queue default.
func NewQueueConfig() QueueConfig {
	return QueueConfig{
		backend:     DefaultQueueBackend,
		redisStream: DefaultRedisStream,
		redisGroup:  DefaultRedisGroup,
		claimIdle:   DefaultRedisClaimIdle,
	}
}

// Backend returns the selected queue backend.
func (q QueueConfig) Backend() QueueBackend { return q.backend }

// RedisAddr returns the Redis address.
func (q QueueConfig) RedisAddr() string { return q.redisAddr }

// RedisPassword returns the Redis password.
func (q QueueConfig) RedisPassword() string { return q.redisPassword }

// RedisDB returns the Redis logical database.
func (q QueueConfig) RedisDB() int { return q.redisDB }

// RedisStream returns the stream name.
func (q QueueConfig) RedisStream() string { return q.redisStream }

// RedisGroup returns the consumer group name.
func (q QueueConfig) RedisGroup() string { return q.redisGroup }

// ClaimIdle returns how long a delivered task may stay unacknowledged before
// another worker reclaims it.
func (q QueueConfig) ClaimIdle() time.Duration { return q.claimIdle }

// AuthConfig configures end-user authentication.
type AuthConfig struct {
	jwtSecret string
	jwtIssuer string
}

// JWTSecret returns the HS256 signing secret.
func (a AuthConfig) JWTSecret() string { return a.jwtSecret }

// JWTIssuer returns the expected token issuer, if any.
func (a AuthConfig) JWTIssuer() string { return a.jwtIssuer }

// AppConfig holds the main application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	dbURL             string
	logLevel          string
	logFormat         LogFormat
	apiKeys           []string
	corsOrigins       []string
	chatEndpoint      Endpoint
	embeddingEndpoint Endpoint
	searchAPIKey      string
	searchBaseURL     string
	pipeline          PipelineConfig
	queue             QueueConfig
	auth              AuthConfig
	workerCount       int
	workerPollPeriod  time.Duration
	promptsFile       string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDataDirName
	}
	return filepath.Join(home, defaultDataDirName)
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:              DefaultHost,
		port:              DefaultPort,
		dataDir:           dataDir,
		dbURL:             "sqlite:///" + filepath.Join(dataDir, defaultDatabaseFile),
		logLevel:          DefaultLogLevel,
		logFormat:         LogFormatPretty,
		apiKeys:           []string{},
		corsOrigins:       []string{"*"},
		chatEndpoint:      NewEndpoint(DefaultChatBaseURL, DefaultChatModel, "", DefaultEndpointTimeout),
		embeddingEndpoint: NewEndpoint(DefaultEmbeddingBaseURL, DefaultEmbeddingModel, "", DefaultEndpointTimeout),
		searchBaseURL:     DefaultSearchBaseURL,
		pipeline:          NewPipelineConfig(),
		queue:             NewQueueConfig(),
		workerCount:       DefaultWorkerCount,
		workerPollPeriod:  DefaultWorkerPollPeriod,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the keys accepted on operator endpoints.
func (c AppConfig) APIKeys() []string { return copyStrings(c.apiKeys) }

// CORSOrigins returns the origins allowed to call the HTTP API from a browser.
func (c AppConfig) CORSOrigins() []string { return copyStrings(c.corsOrigins) }

// ChatEndpoint returns the chat completion endpoint.
func (c AppConfig) ChatEndpoint() Endpoint { return c.chatEndpoint }

// EmbeddingEndpoint returns the embedding endpoint.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embeddingEndpoint }

// SearchAPIKey returns the web search API key.
func (c AppConfig) SearchAPIKey() string { return c.searchAPIKey }

// SearchBaseURL returns the web search API base URL.
func (c AppConfig) SearchBaseURL() string { return c.searchBaseURL }

// Pipeline returns the generation pipeline tuning.
func (c AppConfig) Pipeline() PipelineConfig { return c.pipeline }

// Queue returns the queue configuration.
func (c AppConfig) Queue() QueueConfig { return c.queue }

// Auth returns the end-user authentication configuration.
func (c AppConfig) Auth() AuthConfig { return c.auth }

// WorkerCount returns the number of background workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// WorkerPollPeriod returns how often idle workers poll for tasks.
func (c AppConfig) WorkerPollPeriod() time.Duration { return c.workerPollPeriod }

// PromptsFile returns the optional YAML prompt profile path.
func (c AppConfig) PromptsFile() string { return c.promptsFile }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.HasSuffix(c.dbURL, defaultDatabaseFile) {
			c.dbURL = "sqlite:///" + filepath.Join(dir, defaultDatabaseFile)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) { c.corsOrigins = copyStrings(origins) }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) { c.apiKeys = copyStrings(keys) }
}

// WithChatEndpoint sets the chat endpoint.
func WithChatEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.chatEndpoint = e }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = e }
}

// WithSearch sets the web search credentials.
func WithSearch(apiKey, baseURL string) AppConfigOption {
	return func(c *AppConfig) {
		c.searchAPIKey = apiKey
		if baseURL != "" {
			c.searchBaseURL = baseURL
		}
	}
}

// WithPipeline sets the pipeline tuning.
func WithPipeline(p PipelineConfig) AppConfigOption {
	return func(c *AppConfig) { c.pipeline = p }
}

// WithQueue sets the queue configuration.
func WithQueue(q QueueConfig) AppConfigOption {
	return func(c *AppConfig) { c.queue = q }
}

// WithAuth sets the JWT secret and issuer.
func WithAuth(secret, issuer string) AppConfigOption {
	return func(c *AppConfig) { c.auth = AuthConfig{jwtSecret: secret, jwtIssuer: issuer} }
}

// WithWorkerCount sets the number of background workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithWorkerPollPeriod sets the worker poll period.
func WithWorkerPollPeriod(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.workerPollPeriod = d
		}
	}
}

// WithPromptsFile sets the YAML prompt profile path.
func WithPromptsFile(path string) AppConfigOption {
	return func(c *AppConfig) { c.promptsFile = path }
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Secrets are reported as counts or booleans.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("chat_base_url", c.chatEndpoint.BaseURL()),
		slog.String("chat_model", c.chatEndpoint.Model()),
		slog.String("embedding_base_url", c.embeddingEndpoint.BaseURL()),
		slog.String("embedding_model", c.embeddingEndpoint.Model()),
		slog.Int("embedding_dimension", c.pipeline.EmbeddingDimension()),
		slog.Bool("search_configured", c.searchAPIKey != ""),
		slog.String("queue_backend", string(c.queue.Backend())),
		slog.Int("worker_count", c.workerCount),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Bool("jwt_configured", c.auth.JWTSecret() != ""),
	}
}

func (c AppConfig) maskedDBURL() string {
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseList parses a comma-separated list, dropping blanks.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
