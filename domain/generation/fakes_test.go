package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeCompleter struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

// keywordEmbedder scores each text by how often it mentions each keyword.
type keywordEmbedder struct {
	keywords []string
	dim      int
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if f.dim > 0 {
			out[i] = make([]float64, f.dim)
			out[i][0] = 1
			continue
		}
		v := make([]float64, len(f.keywords))
		for j, k := range f.keywords {
			v[j] = float64(strings.Count(strings.ToLower(t), k)) + 0.01
		}
		out[i] = v
	}
	return out, nil
}

type fakeSearcher struct {
	results []SearchResult
	err     error
}

func (f fakeSearcher) Search(context.Context, string) ([]SearchResult, error) {
	return f.results, f.err
}

type fakeFetcher struct {
	pages map[string]string
}

func (f fakeFetcher) Fetch(_ context.Context, link string) (string, error) {
	page, ok := f.pages[link]
	if !ok {
		return "", errors.New("status 500")
	}
	return page, nil
}

// sentenceChunker treats every sentence as a chunk.
type sentenceChunker struct{}

func (sentenceChunker) Chunk(text string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
