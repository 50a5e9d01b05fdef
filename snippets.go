// Package snippets generates 5W1H knowledge snippets from web sources and
// serves them with similarity search and user engagement.
//
// A generation request runs asynchronously: the query is refined into a
// search topic, web pages are fetched and chunked, the most relevant chunks
// are summarized by a chat model into What/When/Where/Why/How categories, and
// the abstract is embedded for similarity search. The requester receives
// exactly one notification per request.
//
// Basic usage:
//
//	client, err := snippets.New(
//	    snippets.WithSQLite(".snippets/snippets.db"),
//	    snippets.WithOpenAIConfig(provider.OpenAIConfig{APIKey: key, ChatModel: "llama3-70b-8192"}),
//	    snippets.WithSerper(os.Getenv("SEARCH_API_KEY"), ""),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.Generations.Request(ctx, "user_2abc", "photosynthesis")
package snippets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/infrastructure/persistence"
	"github.com/helixml/snippets/infrastructure/queue"
	"github.com/helixml/snippets/internal/database"
)

// Client is the main entry point for the snippets library.
// The background worker starts automatically on creation when generation
// providers are configured.
//
// Access resources via struct fields:
//
//	client.Snippets.List(ctx, service.SnippetListParams{})
//	client.Similarity.ForSnippet(ctx, id)
//	client.Engagement.ToggleLike(ctx, snippetID, userID)
type Client struct {
	Snippets      *service.Snippet
	Similarity    *service.Similarity
	Engagement    *service.Engagement
	Notifications *service.Notification
	Users         *service.User
	Generations   *service.Generation
	Tasks         *service.Queue

	db        database.Database
	stores    clientStores
	taskStore task.TaskStore
	queue     *service.Queue
	worker    *service.Worker
	registry  *service.Registry
	closers   []io.Closer

	logger     *slog.Logger
	dataDir    string
	apiKeys    []string
	jwtSecret  string
	jwtIssuer  string
	generating bool
	closed     atomic.Bool
	mu         sync.Mutex
}

// clientStores groups the persistence layer.
type clientStores struct {
	users         persistence.UserStore
	snippets      persistence.SnippetStore
	embeddings    persistence.EmbeddingIndex
	likes         persistence.LikeStore
	saves         persistence.SaveStore
	notes         persistence.NoteStore
	notifications persistence.NotificationStore
	runs          persistence.RunStore
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.database == databaseUnset {
		return nil, ErrNoDatabase
	}
	if !cfg.hasProviders() && !cfg.skipProviderValidation {
		return nil, fmt.Errorf("%w: configure a chat provider, an embedding provider and a web searcher, or skip validation to start without them", ErrNoProvider)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	dbURL, err := buildDatabaseURL(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(ctx, db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	embeddings, err := persistence.NewEmbeddingIndex(ctx, db, cfg.pipeline.EmbeddingDimension(), logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("embedding store: %w", err), errClose)
	}

	stores := clientStores{
		users:         persistence.NewUserStore(db),
		snippets:      persistence.NewSnippetStore(db, embeddings),
		embeddings:    embeddings,
		likes:         persistence.NewLikeStore(db),
		saves:         persistence.NewSaveStore(db),
		notes:         persistence.NewNoteStore(db),
		notifications: persistence.NewNotificationStore(db),
		runs:          persistence.NewRunStore(db),
	}

	closers := cfg.closers
	taskStore, err := buildTaskStore(ctx, cfg, db)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}
	if closer, ok := taskStore.(io.Closer); ok {
		closers = append(closers, closer)
	}

	registry := service.NewRegistry()
	q := service.NewQueue(taskStore, logger)
	worker := service.NewWorker(taskStore, registry, logger).
		WithCount(cfg.workerCount).
		WithPollPeriod(cfg.workerPollPeriod).
		WithMaxAttempts(cfg.pipeline.JobMaxAttempts())

	client := &Client{
		db:        db,
		stores:    stores,
		taskStore: taskStore,
		queue:     q,
		worker:    worker,
		registry:  registry,
		closers:   closers,
		logger:    logger,
		dataDir:   cfg.dataDir,
		apiKeys:   cfg.apiKeys,
		jwtSecret: cfg.jwtSecret,
		jwtIssuer: cfg.jwtIssuer,
	}

	client.Snippets = service.NewSnippet(stores.snippets)
	client.Similarity = service.NewSimilarity(stores.snippets, stores.embeddings, cfg.pipeline.SimilarNeighbours(), logger)
	client.Engagement = service.NewEngagement(stores.snippets, stores.likes, stores.saves, stores.notes)
	client.Notifications = service.NewNotification(stores.notifications)
	client.Users = service.NewUser(stores.users, logger)
	client.Generations = service.NewGeneration(stores.users, stores.runs, q, logger)
	client.Tasks = q

	if cfg.hasProviders() {
		if err := client.registerHandlers(cfg); err != nil {
			_ = client.closeResources()
			return nil, fmt.Errorf("register handlers: %w", err)
		}
		client.generating = true
		worker.Start(ctx)
	} else {
		logger.Warn("generation providers not configured, requests will stay queued")
	}

	return client, nil
}

// Close releases all resources and stops the background worker.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generating {
		c.worker.Stop()
	}

	if err := c.closeResources(); err != nil {
		return err
	}

	c.logger.Info("snippets client closed")
	return nil
}

func (c *Client) closeResources() error {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Generating reports whether a worker is running generation jobs.
func (c *Client) Generating() bool {
	return c.generating
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// APIKeys returns the keys accepted on operator endpoints.
func (c *Client) APIKeys() []string {
	return append([]string(nil), c.apiKeys...)
}

// JWT returns the HS256 secret and expected issuer for end-user tokens.
// An empty secret means the trusted identity header is accepted instead.
func (c *Client) JWT() (secret, issuer string) {
	return c.jwtSecret, c.jwtIssuer
}

// DataDir returns the data directory.
func (c *Client) DataDir() string {
	return c.dataDir
}

// buildDatabaseURL constructs the database URL from configuration.
func buildDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		if dir := filepath.Dir(cfg.dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create database directory: %w", err)
			}
		}
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		return "", ErrNoDatabase
	}
}

// buildTaskStore selects the task transport.
func buildTaskStore(ctx context.Context, cfg *clientConfig, db database.Database) (task.TaskStore, error) {
	if cfg.redis == nil {
		return persistence.NewTaskStore(db), nil
	}
	store, err := queue.NewRedisTaskStore(ctx, *cfg.redis)
	if err != nil {
		return nil, fmt.Errorf("redis queue: %w", err)
	}
	return store, nil
}
