package task

import (
	"context"
)

// TaskStore defines the interface for Task persistence operations.
type TaskStore interface {
	// Save enqueues a task. A task whose dedup key is already queued is not
	// duplicated; the existing entry is returned with its priority refreshed.
	Save(ctx context.Context, task Task) (Task, error)

	// Dequeue hands out the highest priority task. The task stays owned by
	// the caller until Delete is called; returns false if the queue is empty.
	Dequeue(ctx context.Context) (Task, bool, error)

	// Delete acknowledges a task so it is never handed out again.
	Delete(ctx context.Context, task Task) error

	// CountPending returns the number of queued tasks.
	CountPending(ctx context.Context) (int64, error)
}

// RunStore persists generation run statuses.
type RunStore interface {
	// Get retrieves a run by request id.
	Get(ctx context.Context, requestID string) (Run, error)

	// Save creates or updates a run.
	Save(ctx context.Context, run Run) (Run, error)
}
