// Package tracking records the progress of generation runs and fans each
// change out to reporters.
package tracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/helixml/snippets/domain/task"
)

// Tracker holds the current state of one generation run and propagates every
// change to registered reporters.
type Tracker struct {
	run         task.Run
	subscribers []Reporter
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewTracker creates a new tracker wrapping the given run.
func NewTracker(run task.Run, logger *slog.Logger, reporters ...Reporter) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		run:         run,
		subscribers: append([]Reporter(nil), reporters...),
		logger:      logger,
	}
}

// Run returns a copy of the current run.
func (t *Tracker) Run() task.Run {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.run
}

// Subscribe adds a reporter to receive run change notifications.
func (t *Tracker) Subscribe(reporter Reporter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, reporter)
}

// Start records the beginning of an execution attempt.
func (t *Tracker) Start(ctx context.Context, attempt int) {
	t.update(ctx, func(r task.Run) task.Run { return r.Start(attempt) })
}

// Advance moves the run to state.
func (t *Tracker) Advance(ctx context.Context, state task.RunState) {
	t.update(ctx, func(r task.Run) task.Run { return r.Advance(state) })
}

// Topic records the refined topic and moves on to source gathering.
func (t *Tracker) Topic(ctx context.Context, topic string) {
	t.update(ctx, func(r task.Run) task.Run {
		return r.WithTopic(topic).Advance(task.RunStateSourceGathering)
	})
}

// Snippet records the created snippet and moves on to notifying.
func (t *Tracker) Snippet(ctx context.Context, snippetID string) {
	t.update(ctx, func(r task.Run) task.Run {
		return r.WithSnippet(snippetID).Advance(task.RunStateNotifying)
	})
}

// Retry marks the run as waiting for another attempt.
func (t *Tracker) Retry(ctx context.Context, errMsg string) {
	t.update(ctx, func(r task.Run) task.Run { return r.Retry(errMsg) })
}

// Fail marks the run as failed.
func (t *Tracker) Fail(ctx context.Context, errMsg string) {
	t.update(ctx, func(r task.Run) task.Run { return r.Fail(errMsg) })
}

// Complete marks the run as completed.
func (t *Tracker) Complete(ctx context.Context) {
	t.Advance(ctx, task.RunStateCompleted)
}

func (t *Tracker) update(ctx context.Context, fn func(task.Run) task.Run) {
	t.mu.Lock()
	t.run = fn(t.run)
	run := t.run
	t.mu.Unlock()

	t.notifySubscribers(ctx, run)
}

// notifySubscribers sends the run to all registered reporters. A failing
// reporter does not stop the others.
func (t *Tracker) notifySubscribers(ctx context.Context, run task.Run) {
	t.mu.RLock()
	subscribers := make([]Reporter, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.RUnlock()

	for _, subscriber := range subscribers {
		if err := subscriber.OnChange(ctx, run); err != nil {
			t.logger.Error("failed to notify subscriber",
				slog.String("error", err.Error()),
				slog.String("request_id", run.RequestID()),
			)
		}
	}
}

// Notify explicitly notifies all subscribers of the current run.
func (t *Tracker) Notify(ctx context.Context) {
	t.notifySubscribers(ctx, t.Run())
}
