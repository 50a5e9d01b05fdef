package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/internal/log"
	"github.com/helixml/snippets/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:     "stdio",
		Aliases: []string{"mcp"},
		Short:   "Start MCP server on stdio",
		Long:    `Start the MCP (Model Context Protocol) server on stdio.

AI assistants can read snippets, list them by recency or likes and find
related snippets. Generation is not started from this command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// stdout carries the protocol.
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	logger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	opts := append(clientOptions(cfg, logger), snippets.WithSkipProviderValidation())
	client, err := snippets.New(opts...)
	if err != nil {
		return fmt.Errorf("create snippets client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close snippets client", slog.Any("error", err))
		}
	}()

	return mcp.NewServer(client.Snippets, client.Similarity, version, logger).ServeStdio()
}
