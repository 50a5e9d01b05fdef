package main

import (
	"log/slog"
	"strings"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/infrastructure/provider"
	"github.com/helixml/snippets/infrastructure/queue"
	"github.com/helixml/snippets/internal/config"
)

// clientOptions returns the snippets.Option slice shared by every
// entrypoint: storage, pipeline tuning, queue backend and identity settings.
// Providers are added by providerOptions so enqueue-only commands can skip
// them.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []snippets.Option {
	opts := []snippets.Option{
		snippets.WithDataDir(cfg.DataDir()),
		snippets.WithLogger(logger),
		snippets.WithPipelineConfig(pipelineConfig(cfg)),
	}
	opts = append(opts, storageOptions(cfg)...)

	if keys := cfg.APIKeys(); len(keys) > 0 {
		opts = append(opts, snippets.WithAPIKeys(keys...))
	}
	if secret := cfg.Auth().JWTSecret(); secret != "" {
		opts = append(opts, snippets.WithJWT(secret, cfg.Auth().JWTIssuer()))
	}
	if cfg.WorkerCount() > 0 {
		opts = append(opts, snippets.WithWorkerCount(cfg.WorkerCount()))
	}
	if cfg.WorkerPollPeriod() > 0 {
		opts = append(opts, snippets.WithWorkerPollPeriod(cfg.WorkerPollPeriod()))
	}

	q := cfg.Queue()
	if q.Backend() == config.QueueBackendRedis {
		opts = append(opts, snippets.WithRedisQueue(queue.RedisConfig{
			Addr:      q.RedisAddr(),
			Password:  q.RedisPassword(),
			DB:        q.RedisDB(),
			Stream:    q.RedisStream(),
			Group:     q.RedisGroup(),
			ClaimIdle: q.ClaimIdle(),
		}))
	}

	return opts
}

// providerOptions returns the chat, embedding and web search providers for
// the endpoints that carry credentials.
func providerOptions(cfg config.AppConfig) []snippets.Option {
	var opts []snippets.Option

	if chat := cfg.ChatEndpoint(); chat.IsConfigured() {
		opts = append(opts, snippets.WithTextProvider(provider.NewOpenAIProviderFromConfig(provider.OpenAIConfig{
			APIKey:    chat.APIKey(),
			BaseURL:   chat.BaseURL(),
			ChatModel: chat.Model(),
			Timeout:   chat.Timeout(),
		})))
	}

	if emb := cfg.EmbeddingEndpoint(); emb.IsConfigured() {
		opts = append(opts, snippets.WithEmbeddingProvider(provider.NewOpenAIProviderFromConfig(provider.OpenAIConfig{
			APIKey:         emb.APIKey(),
			BaseURL:        emb.BaseURL(),
			EmbeddingModel: emb.Model(),
			Dimensions:     cfg.Pipeline().EmbeddingDimension(),
			Timeout:        emb.Timeout(),
		})))
	}

	if key := cfg.SearchAPIKey(); key != "" {
		opts = append(opts, snippets.WithSerper(key, cfg.SearchBaseURL()))
	}

	return opts
}

// pipelineConfig fills unset stage models with the chat endpoint's model so
// the model recorded on each snippet is never blank.
func pipelineConfig(cfg config.AppConfig) config.PipelineConfig {
	p := cfg.Pipeline()
	topic, snippet := p.TopicModel(), p.SnippetModel()
	if topic == "" {
		topic = cfg.ChatEndpoint().Model()
	}
	if snippet == "" {
		snippet = cfg.ChatEndpoint().Model()
	}
	return p.WithModels(topic, snippet)
}

// storageOptions returns the snippets.Option for the configured database.
func storageOptions(cfg config.AppConfig) []snippets.Option {
	dbURL := cfg.DBURL()
	if dbURL != "" && !isSQLite(dbURL) {
		return []snippets.Option{snippets.WithPostgres(dbURL)}
	}

	dbPath := cfg.DataDir() + "/snippets.db"
	if isSQLite(dbURL) {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}
	return []snippets.Option{snippets.WithSQLite(dbPath)}
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
