package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/domain/generation"
	"github.com/helixml/snippets/internal/retry"
)

// fakeEmbeddingServer mimics the embeddings endpoint with deterministic
// 3-dimensional vectors and records the last request body.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64, last *map[string]any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if last != nil {
			*last = body
		}

		var texts []any
		switch v := body["input"].(type) {
		case string:
			texts = []any{v}
		case []any:
			texts = v
		}

		data := make([]map[string]any, len(texts))
		for i := range texts {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{0.1 * float64(i+1), 0.2, 0.3},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body["model"],
			"usage":  map[string]int{"prompt_tokens": len(texts) * 4, "total_tokens": len(texts) * 4},
		})
	}))
}

// fakeChatServer answers every completion with content and records the last
// request body.
func fakeChatServer(t *testing.T, content string, last *map[string]any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*last = body

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func statusServer(status int, counter *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		counter.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
	}))
}

func TestOpenAIProvider_EmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, nil)
	defer srv.Close()

	p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, EmbeddingModel: "m"})

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings())
	assert.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestOpenAIProvider_EmbedBatchWithDimensions(t *testing.T) {
	var counter atomic.Int64
	var last map[string]any
	srv := fakeEmbeddingServer(t, &counter, &last)
	defer srv.Close()

	p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, EmbeddingModel: "nomic", Dimensions: 768})

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a", "b", "c"}))
	require.NoError(t, err)

	require.Len(t, resp.Embeddings(), 3)
	assert.InDelta(t, 0.3, resp.Embeddings()[2][0], 1e-6)
	assert.Equal(t, int64(1), counter.Load(), "one request per batch")
	assert.Equal(t, "nomic", last["model"])
	assert.InDelta(t, 768, last["dimensions"], 0)
}

func TestOpenAIProvider_EmbedWithoutModel(t *testing.T) {
	p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k"})

	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.True(t, retry.IsPermanent(err))
}

func TestOpenAIProvider_ChatCompletionJSONMode(t *testing.T) {
	var last map[string]any
	srv := fakeChatServer(t, `{"what":["x"]}`, &last)
	defer srv.Close()

	p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, ChatModel: "default-model"})

	req := NewChatCompletionRequest([]Message{SystemMessage("sys"), UserMessage("hi")}).
		WithModel("llama3-70b-8192").
		WithJSONObject()
	resp, err := p.ChatCompletion(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, `{"what":["x"]}`, resp.Content())
	assert.Equal(t, "stop", resp.FinishReason())
	assert.Equal(t, 15, resp.Usage().TotalTokens())
	assert.Equal(t, "llama3-70b-8192", last["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, last["response_format"])
}

func TestOpenAIProvider_ChatCompletionDefaultModel(t *testing.T) {
	var last map[string]any
	srv := fakeChatServer(t, "ok", &last)
	defer srv.Close()

	p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, ChatModel: "default-model"})

	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
	require.NoError(t, err)
	assert.Equal(t, "default-model", last["model"])
	assert.NotContains(t, last, "response_format")
}

func TestOpenAIProvider_ErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var counter atomic.Int64
			srv := statusServer(tc.status, &counter)
			defer srv.Close()

			p := NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, ChatModel: "m"})

			_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
			require.Error(t, err)
			assert.Equal(t, tc.permanent, retry.IsPermanent(err))
			assert.Equal(t, int64(1), counter.Load(), "provider never retries internally")

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tc.status, provErr.StatusCode())
		})
	}
}

func TestCompleter_Complete(t *testing.T) {
	var last map[string]any
	srv := fakeChatServer(t, "<think>hmm</think>photosynthesis overview", &last)
	defer srv.Close()

	c := NewCompleter(NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL}))

	answer, err := c.Complete(context.Background(), generation.CompletionRequest{
		Model:  "topic-model",
		System: "prompt",
		User:   "how do plants eat",
		JSON:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "photosynthesis overview", answer)
	messages := last["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "how do plants eat", messages[1].(map[string]any)["content"])
	assert.Equal(t, map[string]any{"type": "json_object"}, last["response_format"])
}

func TestTextEmbedder_Embed(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter, nil)
	defer srv.Close()

	e := NewTextEmbedder(NewOpenAIProviderFromConfig(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, EmbeddingModel: "m"}))

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 3)
}

func TestCleanThinkingTags(t *testing.T) {
	assert.Equal(t, "answer", cleanThinkingTags("<think>a</think>answer"))
	assert.Equal(t, "xy", cleanThinkingTags("x<think>y"))
	assert.Equal(t, "plain", cleanThinkingTags("plain"))
}
