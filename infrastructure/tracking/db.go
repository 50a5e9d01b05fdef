package tracking

import (
	"context"
	"log/slog"

	"github.com/helixml/snippets/domain/task"
)

// DBReporter implements Reporter by persisting runs to the database.
type DBReporter struct {
	repo   task.RunStore
	logger *slog.Logger
}

// NewDBReporter creates a new DBReporter.
func NewDBReporter(repo task.RunStore, logger *slog.Logger) *DBReporter {
	return &DBReporter{
		repo:   repo,
		logger: logger,
	}
}

// OnChange persists the run.
func (r *DBReporter) OnChange(ctx context.Context, run task.Run) error {
	if _, err := r.repo.Save(ctx, run); err != nil {
		r.logger.Error("failed to save generation run",
			slog.String("error", err.Error()),
			slog.String("request_id", run.RequestID()),
		)
		return err
	}
	return nil
}
