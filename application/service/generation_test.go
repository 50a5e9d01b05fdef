package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/domain/task"
)

func TestGeneration_Request(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	s.addUser(t, "alice")
	svc := NewGeneration(s.users, s.runs, NewQueue(s.tasks, discard), discard)

	run, err := svc.Request(ctx, "alice", "  photosynthesis  ")
	require.NoError(t, err)
	assert.NotEmpty(t, run.RequestID())
	assert.Equal(t, task.RunStateReceived, run.State())
	assert.Equal(t, "photosynthesis", run.Query())

	queued, ok, err := s.tasks.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.OperationGenerateSnippet, queued.Operation())
	assert.Equal(t, int(task.PriorityUserInitiated), queued.Priority())
	assert.Equal(t, run.RequestID(), queued.Payload()["request_id"])
	assert.Equal(t, "photosynthesis", queued.Payload()["search_query"])
	assert.Equal(t, "alice", queued.Payload()["user_external_id"])
	assert.Equal(t, "snippets.generation.generate_snippet:"+run.RequestID(), queued.DedupKey())

	got, err := svc.RunFor(ctx, run.RequestID(), "alice")
	require.NoError(t, err)
	assert.Equal(t, run.RequestID(), got.RequestID())

	_, err = svc.RunFor(ctx, run.RequestID(), "mallory")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGeneration_RequestValidation(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	s.addUser(t, "alice")
	svc := NewGeneration(s.users, s.runs, NewQueue(s.tasks, discard), discard)

	for name, tc := range map[string]struct{ user, query string }{
		"empty query":  {"alice", "   "},
		"long query":   {"alice", strings.Repeat("q", 256)},
		"no user":      {"", "photosynthesis"},
		"unknown user": {"nobody", "photosynthesis"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Request(ctx, tc.user, tc.query)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	count, err := s.tasks.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
