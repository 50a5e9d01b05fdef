package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/helixml/snippets/application/handler"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/internal/retry"
)

// DefaultJobMaxAttempts is how many times a failing task runs before its
// failure hook is called.
const DefaultJobMaxAttempts = 3

// Worker processes tasks from the queue.
type Worker struct {
	store       task.TaskStore
	registry    *Registry
	logger      *slog.Logger
	pollPeriod  time.Duration
	count       int
	maxAttempts int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewWorker creates a new queue worker.
func NewWorker(store task.TaskStore, registry *Registry, logger *slog.Logger) *Worker {
	return &Worker{
		store:       store,
		registry:    registry,
		logger:      logger,
		pollPeriod:  time.Second,
		count:       1,
		maxAttempts: DefaultJobMaxAttempts,
	}
}

// WithPollPeriod sets the poll period for checking new tasks.
func (w *Worker) WithPollPeriod(d time.Duration) *Worker {
	if d > 0 {
		w.pollPeriod = d
	}
	return w
}

// WithCount sets the number of concurrent worker loops.
func (w *Worker) WithCount(n int) *Worker {
	if n > 0 {
		w.count = n
	}
	return w
}

// WithMaxAttempts sets how many times a task runs before it is given up.
func (w *Worker) WithMaxAttempts(n int) *Worker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

// Start begins processing tasks from the queue.
// The loops run in goroutines and can be stopped with Stop().
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	for i := range w.count {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx, i)
		}()
	}

	w.logger.Info("queue worker started", slog.Int("loops", w.count))
}

// Stop gracefully shuts down the worker.
// It waits for the current tasks to complete before returning.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("queue worker stopped")
}

func (w *Worker) run(ctx context.Context, loop int) {
	logger := w.logger.With(slog.Int("loop", loop))
	logger.Debug("worker loop started")

	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopping")
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for {
				found, err := w.ProcessOne(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error("error processing task", slog.String("error", err.Error()))
					break
				}
				if !found {
					break
				}
			}
		}
	}
}

// ProcessOne dequeues and processes a single task synchronously.
// It reports whether a task was found.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	t, found, err := w.store.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	return true, w.processTask(ctx, t)
}

func (w *Worker) processTask(ctx context.Context, t task.Task) error {
	start := time.Now()
	attempt := t.Attempts() + 1
	logger := w.logger.With(
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
		slog.Int("attempt", attempt),
	)

	logger.InfoContext(ctx, "processing task")

	h, ok := w.registry.Handler(t.Operation())
	if !ok {
		logger.ErrorContext(ctx, "no handler for operation")
		// Delete the task anyway to prevent it from blocking the queue
		return w.store.Delete(ctx, t)
	}

	err := w.executeWithRecovery(handler.WithAttempt(ctx, attempt), h, t)
	if err == nil {
		logger.InfoContext(ctx, "task completed", slog.Duration("duration", time.Since(start)))
		return w.store.Delete(ctx, t)
	}

	if ctx.Err() != nil {
		// Shutting down: the lease expires and the task runs again later.
		return ctx.Err()
	}

	permanent := errors.Is(err, handler.ErrPermanent)
	if !permanent && !retry.IsPermanent(err) && attempt < w.maxAttempts {
		logger.WarnContext(ctx, "task failed, requeueing", slog.String("error", err.Error()))
		if err := w.store.Delete(ctx, t); err != nil {
			return fmt.Errorf("delete failed task: %w", err)
		}
		if _, saveErr := w.store.Save(ctx, t.NextAttempt()); saveErr != nil {
			// The task is already acknowledged, so this attempt is its last.
			logger.ErrorContext(ctx, "requeue failed, giving up on task", slog.String("error", saveErr.Error()))
			w.onFailure(ctx, logger, h, t, err)
			return fmt.Errorf("requeue task: %w", saveErr)
		}
		return nil
	}

	logger.ErrorContext(ctx, "task execution failed", slog.String("error", err.Error()))
	if !permanent {
		w.onFailure(ctx, logger, h, t, err)
	}
	return w.store.Delete(ctx, t)
}

func (w *Worker) executeWithRecovery(ctx context.Context, h handler.Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Execute(ctx, t.Payload())
}

func (w *Worker) onFailure(ctx context.Context, logger *slog.Logger, h handler.Handler, t task.Task, cause error) {
	fh, ok := h.(handler.FailureHandler)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "failure hook panicked", slog.Any("panic", r))
		}
	}()
	if err := fh.OnFailure(ctx, t.Payload(), cause); err != nil {
		logger.ErrorContext(ctx, "failure hook failed", slog.String("error", err.Error()))
	}
}
