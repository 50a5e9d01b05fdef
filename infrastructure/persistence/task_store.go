package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTaskLease is how long a dequeued task stays hidden from other
// workers before it is handed out again.
const DefaultTaskLease = 10 * time.Minute

// TaskStore implements task.TaskStore using GORM. Dequeue leases a task
// rather than deleting it, so work owned by a crashed worker is retried
// once the lease expires.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
	lease  time.Duration
}

// TaskStoreOption configures a TaskStore.
type TaskStoreOption func(*TaskStore)

// WithTaskLease sets the lease duration for dequeued tasks.
func WithTaskLease(d time.Duration) TaskStoreOption {
	return func(s *TaskStore) {
		if d > 0 {
			s.lease = d
		}
	}
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database, opts ...TaskStoreOption) TaskStore {
	s := TaskStore{
		db:     db,
		mapper: TaskMapper{},
		lease:  DefaultTaskLease,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Save creates a new task or refreshes the priority of the queued task with
// the same dedup key.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.mapper.ToModel(t)

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return task.Task{}, fmt.Errorf("save task: %w", result.Error)
	}

	var stored TaskModel
	if err := s.db.Session(ctx).Where("dedup_key = ?", t.DedupKey()).First(&stored).Error; err != nil {
		return task.Task{}, fmt.Errorf("reload task: %w", err)
	}
	return s.mapper.ToDomain(stored), nil
}

// Dequeue leases the highest priority task whose lease is free.
func (s TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel
	now := time.Now().UTC()

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		q := tx.Where("leased_until IS NULL OR leased_until < ?", now).
			Order("priority DESC, created_at ASC, id ASC")
		if s.db.IsPostgres() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		until := now.Add(s.lease)
		model.LeasedUntil = &until
		return tx.Model(&TaskModel{}).Where("id = ?", model.ID).Update("leased_until", until).Error
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	if model.ID == 0 {
		return task.Task{}, false, nil
	}

	t := s.mapper.ToDomain(model)
	return t.WithReceipt(strconv.FormatInt(t.ID(), 10)), true, nil
}

// Delete removes a task.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	result := s.db.Session(ctx).Delete(&TaskModel{}, t.ID())
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	return nil
}

// CountPending returns the number of queued tasks, leased or not.
func (s TaskStore) CountPending(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.Session(ctx).Model(&TaskModel{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count pending tasks: %w", result.Error)
	}
	return count, nil
}

// RunStore implements task.RunStore using GORM.
type RunStore struct {
	repo database.Repository[task.Run, RunModel]
}

// NewRunStore creates a new RunStore.
func NewRunStore(db database.Database) RunStore {
	return RunStore{
		repo: database.NewRepository[task.Run, RunModel](db, RunMapper{}, "generation run"),
	}
}

// Get retrieves a run by request id.
func (s RunStore) Get(ctx context.Context, requestID string) (task.Run, error) {
	var model RunModel
	err := s.repo.DB(ctx).Where("request_id = ?", requestID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task.Run{}, fmt.Errorf("%w: generation run %s", database.ErrNotFound, requestID)
		}
		return task.Run{}, fmt.Errorf("get generation run: %w", err)
	}
	return s.repo.Mapper().ToDomain(model), nil
}

// Save creates or updates a run.
func (s RunStore) Save(ctx context.Context, run task.Run) (task.Run, error) {
	model := s.repo.Mapper().ToModel(run)
	if err := s.repo.DB(ctx).Save(&model).Error; err != nil {
		return task.Run{}, fmt.Errorf("save generation run: %w", err)
	}
	return s.repo.Mapper().ToDomain(model), nil
}

var (
	_ task.TaskStore = TaskStore{}
	_ task.RunStore  = RunStore{}
)
