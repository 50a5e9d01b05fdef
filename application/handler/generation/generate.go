// Package generation runs the snippet generation pipeline for queued requests.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/helixml/snippets/application/handler"
	domaingen "github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/domain/user"
	"github.com/helixml/snippets/infrastructure/tracking"
	"github.com/helixml/snippets/internal/database"
	applog "github.com/helixml/snippets/internal/log"
	"github.com/helixml/snippets/internal/retry"
)

// MaxQueryLength is the longest accepted search query, in characters.
const MaxQueryLength = 255

// Stages holds the pipeline stages run for every request.
type Stages struct {
	Topics      *domaingen.TopicRefiner
	Sources     *domaingen.SourceGatherer
	Vectorizer  *domaingen.ChunkVectorizer
	Synthesizer *domaingen.Synthesizer
	Indexer     *domaingen.EmbeddingIndexer
}

// Stores holds the persistence the pipeline reads and writes.
type Stores struct {
	Users         user.Store
	Snippets      snippet.SnippetStore
	Notifications notification.Store
	Runs          task.RunStore
}

// GenerateSnippet handles the snippets.generation.generate_snippet operation.
//
// Each job ends in exactly one notification keyed by its request id: a
// generated snippet, no information, or an error.
type GenerateSnippet struct {
	stages Stages
	stores Stores
	policy retry.Policy
	logger *slog.Logger
}

// NewGenerateSnippet creates a new GenerateSnippet handler. Every stage call
// that reaches an external service is wrapped in policy.
func NewGenerateSnippet(stages Stages, stores Stores, policy retry.Policy, logger *slog.Logger) (*GenerateSnippet, error) {
	switch {
	case stages.Topics == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil Topics")
	case stages.Sources == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil Sources")
	case stages.Vectorizer == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil Vectorizer")
	case stages.Synthesizer == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil Synthesizer")
	case stages.Indexer == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil Indexer")
	case stores.Users == nil, stores.Snippets == nil, stores.Notifications == nil, stores.Runs == nil:
		return nil, fmt.Errorf("NewGenerateSnippet: nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateSnippet{stages: stages, stores: stores, policy: policy, logger: logger}, nil
}

// ValidateQuery trims a search query and checks its length.
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	n := utf8.RuneCountInString(query)
	if n == 0 {
		return "", errors.New("search query is empty")
	}
	if n > MaxQueryLength {
		return "", fmt.Errorf("search query is %d characters, the limit is %d", n, MaxQueryLength)
	}
	return query, nil
}

// Execute runs one attempt of the pipeline. Expected outcomes, including "no
// information" and "no sources", return nil after notifying the user. Errors
// that escape the stage retries are returned so the worker can run the job
// again.
func (h *GenerateSnippet) Execute(ctx context.Context, payload map[string]any) (err error) {
	started := time.Now()
	p, err := h.payload(payload)
	if err != nil {
		return err
	}
	ctx = applog.WithJobID(ctx, p.RequestID())

	tracker := h.tracker(ctx, p)

	requester, err := h.requester(ctx, p.UserExternalID())
	if err != nil {
		if errors.Is(err, handler.ErrPermanent) {
			tracker.Fail(ctx, err.Error())
		}
		return err
	}
	ctx = applog.WithUserID(ctx, requester.ID())

	if done, err := h.notified(ctx, p.RequestID()); err != nil || done {
		return err
	}

	defer func() {
		if err != nil && !tracker.Run().State().IsTerminal() {
			tracker.Retry(ctx, err.Error())
		}
	}()

	if existing, err := h.stores.Snippets.FindOne(ctx, snippet.WithRequestID(p.RequestID())); err == nil {
		h.logger.InfoContext(ctx, "snippet already stored, resending notification", slog.String("snippet_id", existing.ID()))
		tracker.Snippet(ctx, existing.ID())
		return h.finish(ctx, tracker, requester, p, existing.ID())
	} else if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("find snippet by request: %w", err)
	}

	tracker.Start(ctx, handler.AttemptFrom(ctx))

	topic := h.refine(ctx, p.SearchQuery())
	if topic.NoInformation() {
		if err := h.notify(ctx, requester, p, notification.KindNoInformation, notification.QueryPayload(p.SearchQuery())); err != nil {
			return err
		}
		tracker.Advance(ctx, task.RunStateNoInformation)
		return nil
	}
	tracker.Topic(ctx, topic.Text())

	results, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) ([]domaingen.SearchResult, error) {
		return h.stages.Sources.Search(ctx, topic.SearchText())
	})
	if err != nil {
		return err
	}

	sources, err := h.stages.Sources.Fetch(ctx, results)
	if errors.Is(err, domaingen.ErrNoSources) {
		h.logger.WarnContext(ctx, "no usable sources", slog.String("topic", topic.SearchText()), slog.Int("results", len(results)))
		if err := h.notify(ctx, requester, p, notification.KindError, notification.QueryPayload(p.SearchQuery())); err != nil {
			return err
		}
		tracker.Fail(ctx, domaingen.ErrNoSources.Error())
		return nil
	}
	if err != nil {
		return err
	}

	contexts, err := h.stages.Vectorizer.VectorizeAll(ctx, p.SearchQuery(), sources)
	if err != nil {
		return err
	}
	h.logger.DebugContext(ctx, "sources vectorized", slog.Int("sources", len(sources)), slog.Int("with_context", len(contexts)))

	tracker.Advance(ctx, task.RunStateSynthesizing)
	answer, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) (string, error) {
		return h.stages.Synthesizer.Complete(ctx, p.SearchQuery(), contexts)
	})
	if err != nil {
		return err
	}
	synthesis, err := domaingen.ParseSynthesis(answer)
	if errors.Is(err, domaingen.ErrInsufficientInformation) {
		h.logger.InfoContext(ctx, "model reported insufficient information")
		if err := h.notify(ctx, requester, p, notification.KindError, notification.QueryPayload(p.SearchQuery())); err != nil {
			return err
		}
		tracker.Advance(ctx, task.RunStateInsufficientInformation)
		return nil
	}
	if err != nil {
		return err
	}

	tracker.Advance(ctx, task.RunStatePersisting)
	stored, err := h.persist(ctx, requester, p, topic, results, synthesis, time.Since(started))
	if err != nil {
		return err
	}
	tracker.Snippet(ctx, stored.ID())

	return h.finish(ctx, tracker, requester, p, stored.ID())
}

// OnFailure sends the error notification once the job has used up its
// attempts and marks the run failed.
func (h *GenerateSnippet) OnFailure(ctx context.Context, payload map[string]any, cause error) error {
	p, err := h.payload(payload)
	if err != nil {
		return err
	}
	ctx = applog.WithJobID(ctx, p.RequestID())
	tracker := h.tracker(ctx, p)

	requester, err := h.requester(ctx, p.UserExternalID())
	if err != nil {
		tracker.Fail(ctx, cause.Error())
		return err
	}
	if err := h.notify(ctx, requester, p, notification.KindError, notification.QueryPayload(p.SearchQuery())); err != nil {
		return err
	}
	tracker.Fail(ctx, cause.Error())
	return nil
}

func (h *GenerateSnippet) payload(payload map[string]any) (handler.GeneratePayload, error) {
	p, err := handler.ExtractGeneratePayload(payload)
	if err != nil {
		return handler.GeneratePayload{}, fmt.Errorf("%w: %w", handler.ErrPermanent, err)
	}
	if p.RequestID() == "" || p.UserExternalID() == "" {
		return handler.GeneratePayload{}, fmt.Errorf("%w: request id and user are required", handler.ErrPermanent)
	}
	if _, err := ValidateQuery(p.SearchQuery()); err != nil {
		return handler.GeneratePayload{}, fmt.Errorf("%w: %w", handler.ErrPermanent, err)
	}
	return p, nil
}

func (h *GenerateSnippet) requester(ctx context.Context, externalID string) (user.User, error) {
	u, err := h.stores.Users.FindOne(ctx, user.WithExternalID(externalID))
	if errors.Is(err, database.ErrNotFound) {
		return user.User{}, fmt.Errorf("%w: unknown user %s", handler.ErrPermanent, externalID)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

func (h *GenerateSnippet) tracker(ctx context.Context, p handler.GeneratePayload) *tracking.Tracker {
	run, err := h.stores.Runs.Get(ctx, p.RequestID())
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.WarnContext(ctx, "failed to load run, starting a new one", slog.Any("error", err))
		}
		run = task.NewRun(p.RequestID(), p.UserExternalID(), p.SearchQuery())
	}
	return tracking.NewTracker(run, h.logger,
		tracking.NewDBReporter(h.stores.Runs, h.logger),
		tracking.NewLoggingReporter(h.logger),
	)
}

// notified reports whether the job already ended with a notification.
func (h *GenerateSnippet) notified(ctx context.Context, requestID string) (bool, error) {
	n, err := h.stores.Notifications.ByIdempotencyKey(ctx, requestID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	h.logger.InfoContext(ctx, "job already notified, skipping", slog.String("kind", string(n.Kind())))
	return true, nil
}

// refine never fails: exhausted retries fall back to the raw query.
func (h *GenerateSnippet) refine(ctx context.Context, query string) domaingen.Topic {
	topic, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) (domaingen.Topic, error) {
		return h.stages.Topics.Refine(ctx, query)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "topic refinement failed, using the query", slog.Any("error", err))
		return domaingen.RawTopic(query)
	}
	return topic
}

func (h *GenerateSnippet) persist(
	ctx context.Context,
	requester user.User,
	p handler.GeneratePayload,
	topic domaingen.Topic,
	results []domaingen.SearchResult,
	synthesis domaingen.Synthesis,
	elapsed time.Duration,
) (snippet.Snippet, error) {
	type indexed struct {
		embedding snippet.Embedding
		ok        bool
	}
	idx, err := retry.DoValue(ctx, h.policy, func(ctx context.Context) (indexed, error) {
		e, ok, err := h.stages.Indexer.Index(ctx, synthesis.Abstract)
		if errors.Is(err, domaingen.ErrDimensionMismatch) {
			return indexed{}, retry.Permanent(err)
		}
		return indexed{embedding: e, ok: ok}, err
	})
	if err != nil {
		return snippet.Snippet{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return snippet.Snippet{}, fmt.Errorf("allocate snippet id: %w", err)
	}

	var refined string
	if topic.Refined() {
		refined = topic.Text()
	}
	s := snippet.NewSnippet(id.String(), p.SearchQuery(), synthesis.Content).
		WithAbstract(synthesis.Abstract).
		WithTags(synthesis.Tags).
		WithReferences(references(results)).
		WithRequest(p.RequestID(), requester.ID(), displayName(requester)).
		WithGeneration(snippet.ModelUsage(h.stages.Synthesizer.Model(), elapsed), refined)

	var emb *snippet.Embedding
	if idx.ok {
		emb = &idx.embedding
	}

	stored, err := h.stores.Snippets.Create(ctx, s, emb)
	if database.IsDuplicate(err) {
		// Another attempt of this job stored it first.
		return h.stores.Snippets.FindOne(ctx, snippet.WithRequestID(p.RequestID()))
	}
	if err != nil {
		return snippet.Snippet{}, fmt.Errorf("store snippet: %w", err)
	}
	h.logger.InfoContext(ctx, "snippet stored",
		slog.String("snippet_id", stored.ID()),
		slog.Int("references", len(stored.References())),
		slog.Bool("embedded", emb != nil),
	)
	return stored, nil
}

func (h *GenerateSnippet) finish(ctx context.Context, tracker *tracking.Tracker, requester user.User, p handler.GeneratePayload, snippetID string) error {
	payload := notification.GeneratedPayload(p.SearchQuery(), snippetID)
	if err := h.notify(ctx, requester, p, notification.KindGeneratedSnippet, payload); err != nil {
		return err
	}
	tracker.Complete(ctx)
	return nil
}

func (h *GenerateSnippet) notify(ctx context.Context, requester user.User, p handler.GeneratePayload, kind notification.Kind, payload string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("allocate notification id: %w", err)
	}
	n := notification.NewNotification(id.String(), requester.ID(), kind, payload).
		WithIdempotencyKey(p.RequestID())

	_, err = retry.DoValue(ctx, h.policy, func(ctx context.Context) (notification.Notification, error) {
		stored, created, err := h.stores.Notifications.Create(ctx, n)
		if err == nil && !created {
			h.logger.InfoContext(ctx, "notification already sent", slog.String("kind", string(stored.Kind())))
		}
		return stored, err
	})
	if err != nil {
		return fmt.Errorf("send %s notification: %w", kind, err)
	}
	return nil
}

func references(results []domaingen.SearchResult) []snippet.Reference {
	refs := make([]snippet.Reference, 0, len(results))
	for _, r := range results {
		refs = append(refs, snippet.Reference{Link: r.Link, Title: r.Title, Description: r.Snippet})
	}
	return refs
}

func displayName(u user.User) string {
	return strings.TrimSpace(u.FirstName() + " " + u.LastName())
}

var (
	_ handler.Handler        = (*GenerateSnippet)(nil)
	_ handler.FailureHandler = (*GenerateSnippet)(nil)
)
