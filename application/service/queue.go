package service

import (
	"context"
	"log/slog"

	"github.com/helixml/snippets/domain/task"
)

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store  task.TaskStore
	logger *slog.Logger
}

// NewQueue creates a new queue service.
func NewQueue(store task.TaskStore, logger *slog.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// Enqueue adds a task to the queue.
// If a task with the same dedup_key exists, it updates the priority instead.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) (task.Task, error) {
	saved, err := s.store.Save(ctx, t)
	if err != nil {
		return task.Task{}, err
	}

	s.logger.DebugContext(ctx, "task enqueued",
		slog.Int64("task_id", saved.ID()),
		slog.String("dedup_key", saved.DedupKey()),
		slog.String("operation", saved.Operation().String()),
	)
	return saved, nil
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}
