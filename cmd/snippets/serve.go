package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/infrastructure/api"
	apimiddleware "github.com/helixml/snippets/infrastructure/api/middleware"
	"github.com/helixml/snippets/internal/config"
	"github.com/helixml/snippets/internal/log"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and generation workers",
		Long: `Start the HTTP API server and generation workers.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. PROMPTS_FILE YAML profile (prompts, models, source filters)
  3. .env file (if --env-file specified or .env exists in current directory)
  4. Environment variables
  5. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.snippets)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/snippets.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  API_KEYS                     Comma-separated keys for the identity webhook
  CORS_ORIGINS                 Comma-separated browser origins (default: *)
  AUTH_JWT_SECRET              HS256 secret for user bearer tokens
  AUTH_JWT_ISSUER              Expected token issuer

  CHAT_ENDPOINT_*              Chat completion service
    BASE_URL                   Base URL (e.g., https://api.groq.com/openai/v1)
    MODEL                      Model identifier
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout

  EMBEDDING_ENDPOINT_*         Embedding service (same fields as CHAT_ENDPOINT)
  EMBEDDING_DIMENSION          Abstract vector dimension (default: 768)

  SEARCH_API_KEY               Serper API key
  SEARCH_BASE_URL              Serper base URL

  WORKER_COUNT                 Concurrent generation jobs
  QUEUE_BACKEND                database or redis (default: database)
  REDIS_ADDR                   Redis address for the redis backend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelInfo, "starting snippets", attrs...)

	opts := append(clientOptions(cfg, logger), providerOptions(cfg)...)
	client, err := snippets.New(opts...)
	if err != nil {
		return fmt.Errorf("create snippets client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close snippets client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, api.WithVersion(version))
	router := apiServer.Router()

	// Middleware must be registered before MountRoutes.
	router.Use(apimiddleware.Logging(logger))
	router.Use(apimiddleware.CorrelationID)

	apiServer.MountRoutes()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		apimiddleware.WriteJSON(w, http.StatusOK, map[string]any{
			"name":       "snippets",
			"version":    version,
			"generating": client.Generating(),
		})
	})

	server := api.NewServer(cfg.Addr(), logger, api.WithCORSOrigins(cfg.CORSOrigins()...))
	server.Router().Mount("/", router)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logger.Info("received signal", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
