package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use an underscore delimiter (e.g. CHAT_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR (default: ~/.snippets)
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL (default: sqlite:///{data_dir}/snippets.db)
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of keys accepted on operator endpoints.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// CORSOrigins is a comma-separated list of allowed browser origins.
	// Env: CORS_ORIGINS (default: *)
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// ChatEndpoint configures the chat completion service.
	ChatEndpoint EndpointEnv `envconfig:"CHAT_ENDPOINT"`

	// EmbeddingEndpoint configures the embedding service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// EmbeddingDimension is the abstract vector dimension.
	// Env: EMBEDDING_DIMENSION (default: 768)
	EmbeddingDimension int `envconfig:"EMBEDDING_DIMENSION" default:"768"`

	// TopicGenerationModel overrides the chat model for topic refinement.
	// Env: TOPIC_GENERATION_MODEL
	TopicGenerationModel string `envconfig:"TOPIC_GENERATION_MODEL"`

	// TopicGenerationPrompt overrides the topic refinement prompt.
	// Env: TOPIC_GENERATION_PROMPT
	TopicGenerationPrompt string `envconfig:"TOPIC_GENERATION_PROMPT"`

	// SnippetGenerationModel overrides the chat model for synthesis.
	// Env: SNIPPET_GENERATION_MODEL
	SnippetGenerationModel string `envconfig:"SNIPPET_GENERATION_MODEL"`

	// SnippetGenerationPrompt overrides the synthesis instructions.
	// Env: SNIPPET_GENERATION_PROMPT
	SnippetGenerationPrompt string `envconfig:"SNIPPET_GENERATION_PROMPT"`

	// Search configures the web search API.
	Search SearchEnv `envconfig:"SEARCH"`

	// SourceLimit is the maximum number of web sources per job.
	// Env: SOURCE_LIMIT (default: 5)
	SourceLimit int `envconfig:"SOURCE_LIMIT" default:"5"`

	// MinSourceChars is the minimum stripped text length of a source.
	// Env: MIN_SOURCE_CHARS (default: 150)
	MinSourceChars int `envconfig:"MIN_SOURCE_CHARS" default:"150"`

	// FetchTimeout bounds a single page fetch attempt.
	// Env: FETCH_TIMEOUT (default: 5s)
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`

	// ChunkSize is the chunk size in characters.
	// Env: CHUNK_SIZE (default: 250)
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"250"`

	// ChunkOverlap is the overlap between adjacent chunks.
	// Env: CHUNK_OVERLAP (default: 100)
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"100"`

	// ChunkTopK is how many chunks are kept per source.
	// Env: CHUNK_TOP_K (default: 5)
	ChunkTopK int `envconfig:"CHUNK_TOP_K" default:"5"`

	// StageMaxAttempts bounds each external call.
	// Env: STAGE_MAX_ATTEMPTS (default: 3)
	StageMaxAttempts int `envconfig:"STAGE_MAX_ATTEMPTS" default:"3"`

	// StageRetryDelay is the first backoff delay of an external call.
	// Env: STAGE_RETRY_DELAY (default: 1s)
	StageRetryDelay time.Duration `envconfig:"STAGE_RETRY_DELAY" default:"1s"`

	// JobMaxAttempts bounds whole-job executions.
	// Env: JOB_MAX_ATTEMPTS (default: 3)
	JobMaxAttempts int `envconfig:"JOB_MAX_ATTEMPTS" default:"3"`

	// SimilarNeighbours is the neighbour budget of a similarity query.
	// Env: SIMILAR_NEIGHBOURS (default: 6)
	SimilarNeighbours int `envconfig:"SIMILAR_NEIGHBOURS" default:"6"`

	// ExcludedDomains is a comma-separated host blocklist.
	// Env: EXCLUDED_DOMAINS
	ExcludedDomains string `envconfig:"EXCLUDED_DOMAINS"`

	// WorkerCount is the number of background workers.
	// Env: WORKER_COUNT (default: 2)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"2"`

	// WorkerPollPeriod is how often idle workers poll.
	// Env: WORKER_POLL_PERIOD (default: 1s)
	WorkerPollPeriod time.Duration `envconfig:"WORKER_POLL_PERIOD" default:"1s"`

	// QueueBackend is "database" or "redis".
	// Env: QUEUE_BACKEND (default: database)
	QueueBackend string `envconfig:"QUEUE_BACKEND" default:"database"`

	// Redis configures the Redis stream queue.
	Redis RedisEnv `envconfig:"REDIS"`

	// Auth configures bearer token validation.
	Auth AuthEnv `envconfig:"AUTH"`

	// PromptsFile is an optional YAML prompt profile.
	// Env: PROMPTS_FILE
	PromptsFile string `envconfig:"PROMPTS_FILE"`
}

// EndpointEnv holds environment configuration for an AI endpoint.
type EndpointEnv struct {
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`
	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`
}

// SearchEnv holds the web search settings.
type SearchEnv struct {
	// Env: SEARCH_API_KEY
	APIKey string `envconfig:"API_KEY"`
	// Env: SEARCH_BASE_URL (default: https://google.serper.dev)
	BaseURL string `envconfig:"BASE_URL"`
}

// RedisEnv holds the Redis queue settings.
type RedisEnv struct {
	// Env: REDIS_ADDR
	Addr string `envconfig:"ADDR"`
	// Env: REDIS_PASSWORD
	Password string `envconfig:"PASSWORD"`
	// Env: REDIS_DB (default: 0)
	DB int `envconfig:"DB" default:"0"`
	// Env: REDIS_STREAM (default: snippets:generation)
	Stream string `envconfig:"STREAM" default:"snippets:generation"`
	// Env: REDIS_GROUP (default: snippets)
	Group string `envconfig:"GROUP" default:"snippets"`
	// Env: REDIS_CLAIM_IDLE (default: 5m)
	ClaimIdle time.Duration `envconfig:"CLAIM_IDLE" default:"5m"`
}

// AuthEnv holds the JWT settings.
type AuthEnv struct {
	// Env: AUTH_JWT_SECRET
	JWTSecret string `envconfig:"JWT_SECRET"`
	// Env: AUTH_JWT_ISSUER
	JWTIssuer string `envconfig:"JWT_ISSUER"`
}

// LoadFromEnv loads configuration from environment variables without a prefix.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = cfg.Apply(WithAPIKeys(ParseList(e.APIKeys)))
	}
	if e.CORSOrigins != "" {
		cfg = cfg.Apply(WithCORSOrigins(ParseList(e.CORSOrigins)))
	}

	cfg = cfg.Apply(
		WithChatEndpoint(e.ChatEndpoint.toEndpoint(cfg.ChatEndpoint())),
		WithEmbeddingEndpoint(e.EmbeddingEndpoint.toEndpoint(cfg.EmbeddingEndpoint())),
		WithSearch(e.Search.APIKey, e.Search.BaseURL),
		WithPipeline(e.toPipeline()),
		WithQueue(e.toQueue()),
		WithAuth(e.Auth.JWTSecret, e.Auth.JWTIssuer),
		WithWorkerCount(e.WorkerCount),
		WithWorkerPollPeriod(e.WorkerPollPeriod),
		WithPromptsFile(e.PromptsFile),
	)

	return cfg
}

func (e EnvConfig) toPipeline() PipelineConfig {
	p := NewPipelineConfig()
	p.topicModel = e.TopicGenerationModel
	p.topicPrompt = e.TopicGenerationPrompt
	p.snippetModel = e.SnippetGenerationModel
	p.snippetPrompt = e.SnippetGenerationPrompt
	p = p.withPositive(e)
	if e.FetchTimeout > 0 {
		p.fetchTimeout = e.FetchTimeout
	}
	if e.StageRetryDelay > 0 {
		p.stageRetryDelay = e.StageRetryDelay
	}
	if e.ChunkOverlap >= 0 {
		p.chunkOverlap = e.ChunkOverlap
	}
	if p.chunkOverlap >= p.chunkSize {
		p.chunkOverlap = p.chunkSize / 2
	}
	if e.ExcludedDomains != "" {
		p.excludedDomains = ParseList(e.ExcludedDomains)
	}
	return p
}

func (p PipelineConfig) withPositive(e EnvConfig) PipelineConfig {
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&p.embeddingDimension, e.EmbeddingDimension)
	set(&p.sourceLimit, e.SourceLimit)
	set(&p.minSourceChars, e.MinSourceChars)
	set(&p.chunkSize, e.ChunkSize)
	set(&p.chunkTopK, e.ChunkTopK)
	set(&p.stageMaxAttempts, e.StageMaxAttempts)
	set(&p.jobMaxAttempts, e.JobMaxAttempts)
	set(&p.similarNeighbours, e.SimilarNeighbours)
	return p
}

func (e EnvConfig) toQueue() QueueConfig {
	q := NewQueueConfig()
	if QueueBackend(strings.ToLower(e.QueueBackend)) == QueueBackendRedis {
		q.backend = QueueBackendRedis
	}
	q.redisAddr = e.Redis.Addr
	q.redisPassword = e.Redis.Password
	q.redisDB = e.Redis.DB
	if e.Redis.Stream != "" {
		q.redisStream = e.Redis.Stream
	}
	if e.Redis.Group != "" {
		q.redisGroup = e.Redis.Group
	}
	if e.Redis.ClaimIdle > 0 {
		q.claimIdle = e.Redis.ClaimIdle
	}
	return q
}

func (e EndpointEnv) toEndpoint(defaults Endpoint) Endpoint {
	baseURL := defaults.BaseURL()
	if e.BaseURL != "" {
		baseURL = e.BaseURL
	}
	model := defaults.Model()
	if e.Model != "" {
		model = e.Model
	}
	return NewEndpoint(baseURL, model, e.APIKey, time.Duration(e.Timeout*float64(time.Second)))
}

func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
