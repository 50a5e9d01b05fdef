package tracking_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/infrastructure/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReporter records all runs delivered to it.
type fakeReporter struct {
	mu   sync.Mutex
	runs []task.Run
	err  error
}

func (f *fakeReporter) OnChange(_ context.Context, run task.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}

func (f *fakeReporter) states() []task.RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := make([]task.RunState, len(f.runs))
	for i, r := range f.runs {
		states[i] = r.State()
	}
	return states
}

// fakeRunStore keeps the last saved run per request id.
type fakeRunStore struct {
	runs map[string]task.Run
}

func (s *fakeRunStore) Get(_ context.Context, id string) (task.Run, error) {
	r, ok := s.runs[id]
	if !ok {
		return task.Run{}, errors.New("not found")
	}
	return r, nil
}

func (s *fakeRunStore) Save(_ context.Context, r task.Run) (task.Run, error) {
	s.runs[r.RequestID()] = r
	return r, nil
}

func TestTracker_ReportsEveryTransition(t *testing.T) {
	ctx := context.Background()
	fake := &fakeReporter{}
	tracker := tracking.NewTracker(task.NewRun("req-1", "ext-1", "photosynthesis"), nil, fake)

	tracker.Start(ctx, 1)
	tracker.Topic(ctx, "plant photosynthesis")
	tracker.Advance(ctx, task.RunStateSynthesizing)
	tracker.Advance(ctx, task.RunStatePersisting)
	tracker.Snippet(ctx, "snip-1")
	tracker.Complete(ctx)

	assert.Equal(t, []task.RunState{
		task.RunStateTopicRefining,
		task.RunStateSourceGathering,
		task.RunStateSynthesizing,
		task.RunStatePersisting,
		task.RunStateNotifying,
		task.RunStateCompleted,
	}, fake.states())

	run := tracker.Run()
	assert.Equal(t, "plant photosynthesis", run.Topic())
	assert.Equal(t, "snip-1", run.SnippetID())
	assert.True(t, run.State().IsTerminal())
}

func TestTracker_FailingReporterDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	failing := &fakeReporter{err: errors.New("boom")}
	ok := &fakeReporter{}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tracker := tracking.NewTracker(task.NewRun("req-1", "ext-1", "q"), logger, failing)
	tracker.Subscribe(ok)

	tracker.Fail(ctx, "search down")

	require.Len(t, ok.states(), 1)
	assert.Equal(t, task.RunStateFailed, ok.states()[0])
	assert.Contains(t, buf.String(), "failed to notify subscriber")
}

func TestDBReporter_PersistsRun(t *testing.T) {
	ctx := context.Background()
	store := &fakeRunStore{runs: map[string]task.Run{}}
	tracker := tracking.NewTracker(
		task.NewRun("req-1", "ext-1", "q"),
		nil,
		tracking.NewDBReporter(store, slog.Default()),
	)

	tracker.Start(ctx, 2)
	tracker.Retry(ctx, "timeout")

	got, err := store.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, task.RunStateRetrying, got.State())
	assert.Equal(t, "timeout", got.Error())
	assert.Equal(t, 2, got.Attempts())
}

func TestLoggingReporter_LogsErrors(t *testing.T) {
	var buf bytes.Buffer
	reporter := tracking.NewLoggingReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	run := task.NewRun("req-1", "ext-1", "q").Fail("no sources")
	require.NoError(t, reporter.OnChange(context.Background(), run))

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "no sources")
}
