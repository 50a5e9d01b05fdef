package snippets_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets"
	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/infrastructure/provider"
	"github.com/helixml/snippets/internal/config"
)

const (
	testDimension  = 4
	testPollPeriod = 20 * time.Millisecond
)

const bicycleAnswer = `{
	"what": ["A **bicycle** stays upright while moving."],
	"when": ["Whenever it rolls above walking pace."],
	"where": ["On any road."],
	"why": ["Steering corrects every lean."],
	"how": ["The front wheel turns into the fall."],
	"amazingfacts": ["Riderless bicycles can balance themselves."],
	"abstract": "Bicycles balance through steering, not gyroscopes.",
	"tags": ["#physics", "bicycles", "balance", "steering", "motion"]
}`

// fakeChat answers topic requests with a fixed topic and JSON requests with
// a fixed synthesis.
type fakeChat struct {
	mu        sync.Mutex
	topic     string
	synthesis string
	calls     int
}

func (f *fakeChat) ChatCompletion(_ context.Context, req provider.ChatCompletionRequest) (provider.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if req.JSONObject() {
		return provider.NewChatCompletionResponse(f.synthesis, "stop", provider.Usage{}), nil
	}
	return provider.NewChatCompletionResponse(f.topic, "stop", provider.Usage{}), nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	texts := req.Texts()
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{1, float64(len(t) % 5), 0.5, 0.25}
	}
	return provider.NewEmbeddingResponse(out, provider.Usage{}), nil
}

type fakeSearch struct {
	results []generation.SearchResult
}

func (f fakeSearch) Search(context.Context, string) ([]generation.SearchResult, error) {
	return f.results, nil
}

type fakePages map[string]string

func (p fakePages) Fetch(_ context.Context, link string) (string, error) {
	page, ok := p[link]
	if !ok {
		return "", errors.New("status 404")
	}
	return page, nil
}

func bicycleSources() (fakeSearch, fakePages) {
	search := fakeSearch{}
	pages := fakePages{}
	for i := 1; i <= 3; i++ {
		link := fmt.Sprintf("https://example.org/bicycle/%d", i)
		search.results = append(search.results, generation.SearchResult{
			Title:   fmt.Sprintf("Bicycle physics %d", i),
			Link:    link,
			Snippet: "How bicycles balance.",
		})
		pages[link] = strings.Repeat("A moving bicycle balances because the rider steers into the lean. ", 10)
	}
	return search, pages
}

func testPipeline() config.PipelineConfig {
	return config.NewPipelineConfig().
		WithEmbeddingDimension(testDimension).
		WithModels("topic-model", "snippet-model").
		WithStageRetry(1, time.Millisecond).
		WithJobMaxAttempts(1)
}

func newGeneratingClient(t *testing.T, chat *fakeChat, search fakeSearch, pages fakePages) *snippets.Client {
	t.Helper()
	dir := t.TempDir()
	client, err := snippets.New(
		snippets.WithSQLite(filepath.Join(dir, "test.db")),
		snippets.WithDataDir(dir),
		snippets.WithTextProvider(chat),
		snippets.WithEmbeddingProvider(fakeEmbedder{}),
		snippets.WithWebSearcher(search),
		snippets.WithPageFetcher(pages),
		snippets.WithPipelineConfig(testPipeline()),
		snippets.WithWorkerPollPeriod(testPollPeriod),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// waitForRun polls until the run reaches a terminal state.
func waitForRun(t *testing.T, client *snippets.Client, requestID string) task.Run {
	t.Helper()
	var run task.Run
	require.Eventually(t, func() bool {
		var err error
		run, err = client.Generations.Run(context.Background(), requestID)
		return err == nil && run.State().IsTerminal()
	}, 10*time.Second, testPollPeriod, "generation %s did not finish", requestID)
	return run
}

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := snippets.New(snippets.WithSkipProviderValidation())
	assert.ErrorIs(t, err, snippets.ErrNoDatabase)
}

func TestNew_RequiresProviders(t *testing.T) {
	dir := t.TempDir()
	_, err := snippets.New(snippets.WithSQLite(filepath.Join(dir, "test.db")))
	assert.ErrorIs(t, err, snippets.ErrNoProvider)
}

func TestClient_CloseTwice(t *testing.T) {
	dir := t.TempDir()
	client, err := snippets.New(
		snippets.WithSQLite(filepath.Join(dir, "nested", "test.db")),
		snippets.WithSkipProviderValidation(),
	)
	require.NoError(t, err)
	assert.False(t, client.Generating())

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), snippets.ErrClientClosed)
}

func TestClient_GeneratesSnippetEndToEnd(t *testing.T) {
	ctx := context.Background()
	search, pages := bicycleSources()
	chat := &fakeChat{topic: "Bicycle balance", synthesis: bicycleAnswer}
	client := newGeneratingClient(t, chat, search, pages)
	require.True(t, client.Generating())

	alice, err := client.Users.UpsertFromProvider(ctx, service.ProviderUser{ExternalID: "ext-alice", FirstName: "Alice"})
	require.NoError(t, err)

	run, err := client.Generations.Request(ctx, "ext-alice", "why don't bikes fall over")
	require.NoError(t, err)

	run = waitForRun(t, client, run.RequestID())
	require.Equal(t, task.RunStateCompleted, run.State(), run.Error())
	assert.Equal(t, "Bicycle balance", run.Topic())

	sn, err := client.Snippets.Get(ctx, run.SnippetID())
	require.NoError(t, err)
	assert.Equal(t, "why don't bikes fall over", sn.Title())
	assert.Equal(t, "Bicycle balance", sn.TopicGenerated())
	assert.Equal(t, "Alice", sn.RequestorName())
	assert.True(t, strings.HasPrefix(sn.ModelUsed(), "snippet-model | "), sn.ModelUsed())
	assert.True(t, strings.HasSuffix(sn.ModelUsed(), " second(s)"), sn.ModelUsed())
	assert.Equal(t, "Bicycles balance through steering, not gyroscopes.", sn.Abstract())
	assert.Len(t, sn.References(), 3)
	assert.NotEmpty(t, sn.Content().How)

	list, err := client.Notifications.List(ctx, alice.ID(), service.NotificationListParams{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notification.KindGeneratedSnippet, list[0].Kind())
	assert.Equal(t, "snippet/"+sn.ID(), list[0].Link())

	count, err := client.Snippets.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestClient_NoInformationTopic(t *testing.T) {
	ctx := context.Background()
	search, pages := bicycleSources()
	chat := &fakeChat{topic: "NO INFORMATION", synthesis: bicycleAnswer}
	client := newGeneratingClient(t, chat, search, pages)

	alice, err := client.Users.UpsertFromProvider(ctx, service.ProviderUser{ExternalID: "ext-alice", FirstName: "Alice"})
	require.NoError(t, err)

	run, err := client.Generations.Request(ctx, "ext-alice", "xqzvplm")
	require.NoError(t, err)

	run = waitForRun(t, client, run.RequestID())
	assert.Equal(t, task.RunStateNoInformation, run.State())

	count, err := client.Snippets.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	list, err := client.Notifications.List(ctx, alice.ID(), service.NotificationListParams{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notification.KindNoInformation, list[0].Kind())
}

func TestClient_NoUsableSourcesFails(t *testing.T) {
	ctx := context.Background()
	search, _ := bicycleSources()
	chat := &fakeChat{topic: "Bicycle balance", synthesis: bicycleAnswer}
	client := newGeneratingClient(t, chat, search, fakePages{})

	alice, err := client.Users.UpsertFromProvider(ctx, service.ProviderUser{ExternalID: "ext-alice"})
	require.NoError(t, err)

	run, err := client.Generations.Request(ctx, "ext-alice", "why don't bikes fall over")
	require.NoError(t, err)

	run = waitForRun(t, client, run.RequestID())
	assert.Equal(t, task.RunStateFailed, run.State())

	list, err := client.Notifications.List(ctx, alice.ID(), service.NotificationListParams{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notification.KindError, list[0].Kind())
}

func TestClient_RequestRequiresKnownUser(t *testing.T) {
	search, pages := bicycleSources()
	client := newGeneratingClient(t, &fakeChat{}, search, pages)

	_, err := client.Generations.Request(context.Background(), "ext-nobody", "why is the sky blue")
	assert.ErrorIs(t, err, service.ErrValidation)
}
