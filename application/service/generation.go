package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/helixml/snippets/application/handler"
	"github.com/helixml/snippets/application/handler/generation"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/domain/user"
	"github.com/helixml/snippets/internal/database"
)

// Generation accepts snippet generation requests and reports their progress.
type Generation struct {
	users  user.Store
	runs   task.RunStore
	queue  *Queue
	logger *slog.Logger
}

// NewGeneration creates a new Generation service.
func NewGeneration(users user.Store, runs task.RunStore, queue *Queue, logger *slog.Logger) *Generation {
	return &Generation{users: users, runs: runs, queue: queue, logger: logger}
}

// Request validates the query, records a run and queues the job. The returned
// run is in the received state; poll Run for progress.
func (s *Generation) Request(ctx context.Context, userExternalID, query string) (task.Run, error) {
	query, err := generation.ValidateQuery(query)
	if err != nil {
		return task.Run{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if userExternalID == "" {
		return task.Run{}, fmt.Errorf("%w: user is required", ErrValidation)
	}
	if _, err := s.users.FindOne(ctx, user.WithExternalID(userExternalID)); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return task.Run{}, fmt.Errorf("%w: unknown user %s", ErrValidation, userExternalID)
		}
		return task.Run{}, fmt.Errorf("resolve user: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return task.Run{}, fmt.Errorf("allocate request id: %w", err)
	}
	requestID := id.String()

	run, err := s.runs.Save(ctx, task.NewRun(requestID, userExternalID, query))
	if err != nil {
		return task.Run{}, fmt.Errorf("record run: %w", err)
	}

	t := task.NewTask(
		task.OperationGenerateSnippet,
		int(task.PriorityUserInitiated),
		handler.NewGeneratePayload(requestID, query, userExternalID),
	)
	if _, err := s.queue.Enqueue(ctx, t); err != nil {
		return task.Run{}, fmt.Errorf("enqueue generation: %w", err)
	}

	s.logger.InfoContext(ctx, "generation requested",
		slog.String("request_id", requestID),
		slog.String("user_external_id", userExternalID),
	)
	return run, nil
}

// Run returns the status of a generation request.
func (s *Generation) Run(ctx context.Context, requestID string) (task.Run, error) {
	return s.runs.Get(ctx, requestID)
}

// RunFor returns the status of a request made by userExternalID. Other users'
// requests yield ErrForbidden.
func (s *Generation) RunFor(ctx context.Context, requestID, userExternalID string) (task.Run, error) {
	run, err := s.runs.Get(ctx, requestID)
	if err != nil {
		return task.Run{}, err
	}
	if run.UserExternalID() != userExternalID {
		return task.Run{}, ErrForbidden
	}
	return run, nil
}
