package tracking

import (
	"context"
	"log/slog"

	"github.com/helixml/snippets/domain/task"
)

// LoggingReporter implements Reporter by logging run transitions.
type LoggingReporter struct {
	logger *slog.Logger
}

// NewLoggingReporter creates a new LoggingReporter.
func NewLoggingReporter(logger *slog.Logger) *LoggingReporter {
	return &LoggingReporter{
		logger: logger,
	}
}

// OnChange logs the run state.
func (r *LoggingReporter) OnChange(_ context.Context, run task.Run) error {
	attrs := []any{
		slog.String("request_id", run.RequestID()),
		slog.String("state", string(run.State())),
		slog.Int("attempt", run.Attempts()),
	}

	switch run.State() {
	case task.RunStateFailed:
		r.logger.Error("generation run", append(attrs, slog.String("error", run.Error()))...)
	case task.RunStateRetrying:
		r.logger.Warn("generation run", append(attrs, slog.String("error", run.Error()))...)
	default:
		r.logger.Info("generation run", attrs...)
	}

	return nil
}
