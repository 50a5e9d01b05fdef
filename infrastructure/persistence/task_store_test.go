package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTask(requestID string, priority task.Priority) task.Task {
	return task.NewTask(task.OperationGenerateSnippet, int(priority), map[string]any{
		"request_id":       requestID,
		"search_query":     "photosynthesis",
		"user_external_id": "ext-1",
	})
}

func TestTaskStore_SaveDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	first, err := store.Save(ctx, generateTask("req-1", task.PriorityNormal))
	require.NoError(t, err)
	assert.NotZero(t, first.ID())
	assert.Equal(t, "snippets.generation.generate_snippet:req-1", first.DedupKey())

	second, err := store.Save(ctx, generateTask("req-1", task.PriorityUserInitiated))
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, int(task.PriorityUserInitiated), second.Priority())

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTaskStore_DequeueOrderAndLease(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	_, err := store.Save(ctx, generateTask("low", task.PriorityBackground))
	require.NoError(t, err)
	_, err = store.Save(ctx, generateTask("high", task.PriorityUserInitiated))
	require.NoError(t, err)

	got, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "high", got.Payload()["request_id"])
	assert.NotEmpty(t, got.Receipt())

	next, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "low", next.Payload()["request_id"], "leased task is not handed out twice")

	_, ok, err = store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, got))
	require.NoError(t, store.Delete(ctx, next))

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTaskStore_ExpiredLeaseIsRedelivered(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t), WithTaskLease(time.Millisecond))

	_, err := store.Save(ctx, generateTask("req-1", task.PriorityNormal))
	require.NoError(t, err)

	first, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	again, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID(), again.ID())
}

func TestTaskStore_RequeueNextAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(newTestDB(t))

	_, err := store.Save(ctx, generateTask("req-1", task.PriorityNormal))
	require.NoError(t, err)
	got, _, err := store.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, got))
	retried, err := store.Save(ctx, got.NextAttempt())
	require.NoError(t, err)
	assert.Equal(t, 1, retried.Attempts())

	again, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, again.Attempts())
	assert.Equal(t, "photosynthesis", again.Payload()["search_query"])
}

func TestRunStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(newTestDB(t))

	run := task.NewRun("req-1", "ext-1", "photosynthesis")
	_, err := store.Save(ctx, run)
	require.NoError(t, err)

	advanced := run.Start(1).WithTopic("plant photosynthesis").Advance(task.RunStateSynthesizing)
	_, err = store.Save(ctx, advanced)
	require.NoError(t, err)

	got, err := store.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, task.RunStateSynthesizing, got.State())
	assert.Equal(t, "plant photosynthesis", got.Topic())
	assert.Equal(t, "ext-1", got.UserExternalID())
	assert.Equal(t, 1, got.Attempts())

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
