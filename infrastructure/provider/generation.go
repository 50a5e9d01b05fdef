package provider

import (
	"context"
	"strings"

	"github.com/helixml/snippets/domain/generation"
)

// Completer adapts a TextGenerator to the pipeline's completion contract.
type Completer struct {
	generator   TextGenerator
	temperature float64
}

// NewCompleter creates a Completer.
func NewCompleter(generator TextGenerator) *Completer {
	return &Completer{generator: generator}
}

// WithTemperature sets the sampling temperature.
func (c *Completer) WithTemperature(t float64) *Completer {
	c.temperature = t
	return c
}

// Complete sends the system and user messages and returns the answer with
// any <think> blocks removed.
func (c *Completer) Complete(ctx context.Context, req generation.CompletionRequest) (string, error) {
	var messages []Message
	if req.System != "" {
		messages = append(messages, SystemMessage(req.System))
	}
	messages = append(messages, UserMessage(req.User))

	chatReq := NewChatCompletionRequest(messages).
		WithModel(req.Model).
		WithTemperature(c.temperature)
	if req.JSON {
		chatReq = chatReq.WithJSONObject()
	}

	resp, err := c.generator.ChatCompletion(ctx, chatReq)
	if err != nil {
		return "", err
	}
	return cleanThinkingTags(resp.Content()), nil
}

// cleanThinkingTags removes <think>...</think> blocks that reasoning models
// emit before their answer.
func cleanThinkingTags(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end == -1 {
			text = text[:start] + text[start+len("<think>"):]
			continue
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}

// TextEmbedder adapts an Embedder to the pipeline's embedding contract.
type TextEmbedder struct {
	embedder Embedder
}

// NewTextEmbedder creates a TextEmbedder.
func NewTextEmbedder(embedder Embedder) *TextEmbedder {
	return &TextEmbedder{embedder: embedder}
}

// Embed returns one vector per text, in order.
func (e *TextEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.embedder.Embed(ctx, NewEmbeddingRequest(texts))
	if err != nil {
		return nil, err
	}
	return resp.Embeddings(), nil
}

var (
	_ generation.Completer = (*Completer)(nil)
	_ generation.Embedder  = (*TextEmbedder)(nil)
)
