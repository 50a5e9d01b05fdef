package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helixml/snippets/internal/retry"
)

// errEmbeddingCountMismatch indicates the API returned fewer vectors than
// texts. Partial responses happen under transient upstream load.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates HTTP 200 with no data, no model and no
// usage, which routing providers return when every upstream failed.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIProvider implements chat completion and embedding against an
// OpenAI-compatible API. It makes exactly one HTTP call per operation;
// callers wrap it in retry.Do. Errors that cannot succeed on retry are
// marked with retry.Permanent.
type OpenAIProvider struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	dimensions     int
}

// OpenAIConfig holds configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	// Dimensions is sent with embedding requests when positive.
	Dimensions int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenAIProviderFromConfig creates a provider from configuration.
func NewOpenAIProviderFromConfig(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)

	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	switch {
	case cfg.HTTPClient != nil:
		config.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(config),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
	}
}

// ChatCompletion generates a chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	model := req.Model()
	if model == "" {
		model = p.chatModel
	}
	if model == "" {
		return ChatCompletionResponse{}, retry.Permanent(ErrUnsupportedOperation)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages()))
	for _, m := range req.Messages() {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role(), Content: m.Content()})
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens() > 0 {
		openaiReq.MaxTokens = req.MaxTokens()
	}
	if req.Temperature() > 0 {
		openaiReq.Temperature = float32(req.Temperature())
	}
	if req.JSONObject() {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return ChatCompletionResponse{}, p.wrapError("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	usage := NewUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	return NewChatCompletionResponse(
		resp.Choices[0].Message.Content,
		string(resp.Choices[0].FinishReason),
		usage,
	), nil
}

// Embed generates embeddings for the given texts in a single API call.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	if p.embeddingModel == "" {
		return EmbeddingResponse{}, retry.Permanent(ErrUnsupportedOperation)
	}

	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}

	openaiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	}
	if p.dimensions > 0 {
		openaiReq.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, openaiReq)
	if err != nil {
		return EmbeddingResponse{}, p.wrapError("embedding", err)
	}

	if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
		return EmbeddingResponse{}, retry.Permanent(NewProviderError("embedding", http.StatusOK,
			"no embedding data, no model and zero usage", errUpstreamProviderFailure))
	}
	if len(resp.Data) != len(texts) {
		return EmbeddingResponse{}, NewProviderError("embedding", http.StatusOK,
			fmt.Sprintf("got %d vectors for %d texts", len(resp.Data), len(texts)), errEmbeddingCountMismatch)
	}

	embeddings := make([][]float64, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return EmbeddingResponse{}, NewProviderError("embedding", http.StatusOK,
				fmt.Sprintf("vector index %d out of range", data.Index), errEmbeddingCountMismatch)
		}
		vector := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float64(v)
		}
		embeddings[data.Index] = vector
	}

	usage := NewUsage(resp.Usage.PromptTokens, 0, resp.Usage.TotalTokens)
	return NewEmbeddingResponse(embeddings, usage), nil
}

// isRetryable determines if an error may succeed on another attempt.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode >= 500 ||
			reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}

	// Transport failures without a status.
	return true
}

// wrapError wraps an OpenAI error into a ProviderError, marking it permanent
// when retrying cannot help.
func (p *OpenAIProvider) wrapError(operation string, err error) error {
	var wrapped *ProviderError

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		wrapped = NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	case errors.As(err, &reqErr):
		wrapped = NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	default:
		wrapped = NewProviderError(operation, 0, err.Error(), err)
	}

	if errors.Is(err, context.Canceled) || !isRetryable(err) {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

var (
	_ TextGenerator = (*OpenAIProvider)(nil)
	_ Embedder      = (*OpenAIProvider)(nil)
)
