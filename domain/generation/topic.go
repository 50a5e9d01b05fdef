package generation

import (
	"context"
	"fmt"
	"strings"
)

// Topic is the search topic derived from a user query.
type Topic struct {
	text          string
	refined       bool
	noInformation bool
}

// RawTopic is the unrefined query used when refinement is unavailable.
func RawTopic(query string) Topic {
	return Topic{text: query}
}

// Text returns the topic.
func (t Topic) Text() string { return t.text }

// Refined reports whether the model produced the topic.
func (t Topic) Refined() bool { return t.refined }

// NoInformation reports whether the model knows nothing about the query.
func (t Topic) NoInformation() bool { return t.noInformation }

// SearchText returns the topic with quotation marks removed.
func (t Topic) SearchText() string {
	return strings.TrimSpace(strings.ReplaceAll(t.text, `"`, ""))
}

// TopicRefiner rewrites a free-text query into a concise search topic.
type TopicRefiner struct {
	completer Completer
	model     string
	prompt    string
}

// NewTopicRefiner creates a TopicRefiner. An empty prompt uses
// DefaultTopicPrompt.
func NewTopicRefiner(completer Completer, model, prompt string) *TopicRefiner {
	if prompt == "" {
		prompt = DefaultTopicPrompt
	}
	return &TopicRefiner{completer: completer, model: model, prompt: prompt}
}

// Refine makes one completion call. An empty answer falls back to the raw
// query.
func (r *TopicRefiner) Refine(ctx context.Context, query string) (Topic, error) {
	answer, err := r.completer.Complete(ctx, CompletionRequest{
		Model:  r.model,
		System: r.prompt,
		User:   query,
	})
	if err != nil {
		return Topic{}, fmt.Errorf("refine topic: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return RawTopic(query), nil
	}
	if strings.EqualFold(answer, NoInformation) {
		return Topic{text: answer, refined: true, noInformation: true}, nil
	}
	return Topic{text: answer, refined: true}, nil
}
