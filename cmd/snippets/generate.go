package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/internal/log"
)

func generateCmd() *cobra.Command {
	var (
		envFile  string
		userID   string
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate [query]",
		Short: "Request a snippet for a query",
		Long: `Request a snippet for a query on behalf of a registered user.

Without --wait the request is queued for a running server's workers and the
request id is printed. With --wait this process runs the pipeline itself and
prints the snippet once the request finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), generateParams{
				envFile:  envFile,
				userID:   userID,
				query:    args[0],
				wait:     wait,
				interval: interval,
				timeout:  timeout,
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&userID, "user", "", "External id of the requesting user")
	cmd.Flags().BoolVar(&wait, "wait", false, "Run the pipeline in this process and wait for the result")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Status poll interval with --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up waiting after this long")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

type generateParams struct {
	envFile  string
	userID   string
	query    string
	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func runGenerate(ctx context.Context, out io.Writer, p generateParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(p.envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())

	opts := clientOptions(cfg, logger)
	if p.wait {
		opts = append(opts, providerOptions(cfg)...)
	} else {
		opts = append(opts, snippets.WithSkipProviderValidation())
	}

	client, err := snippets.New(opts...)
	if err != nil {
		return fmt.Errorf("create snippets client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close snippets client", slog.Any("error", err))
		}
	}()

	run, err := client.Generations.Request(ctx, p.userID, p.query)
	if err != nil {
		return err
	}
	if !p.wait {
		_, err := fmt.Fprintln(out, run.RequestID())
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	run, err = waitForRun(ctx, client, run.RequestID(), p.interval)
	if err != nil {
		return err
	}
	if run.State() != task.RunStateCompleted {
		return fmt.Errorf("generation %s: %s", run.State(), run.Error())
	}

	sn, err := client.Snippets.Get(ctx, run.SnippetID())
	if err != nil {
		return fmt.Errorf("load snippet: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"id":         sn.ID(),
		"title":      sn.Title(),
		"abstract":   sn.Abstract(),
		"tags":       sn.Tags(),
		"content":    sn.Content(),
		"references": sn.References(),
	})
}

// waitForRun polls the run until it reaches a terminal state.
func waitForRun(ctx context.Context, client *snippets.Client, requestID string, interval time.Duration) (task.Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := client.Generations.Run(ctx, requestID)
		if err != nil {
			return task.Run{}, err
		}
		if run.State().IsTerminal() {
			return run, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return task.Run{}, fmt.Errorf("generation %s still %s", requestID, run.State())
			}
			return task.Run{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
