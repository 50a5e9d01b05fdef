package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixml/snippets/domain/snippet"
)

const (
	maxAmazingFacts = 3
	maxTags         = 5
	sourceSeparator = "\n\n---\n\n"
)

// Synthesis is the parsed model output.
type Synthesis struct {
	Content  snippet.Content
	Abstract string
	Tags     []string
}

// Synthesizer turns ranked context into a 5W1H summary.
type Synthesizer struct {
	completer Completer
	model     string
	prompt    string
}

// NewSynthesizer creates a Synthesizer. An empty prompt uses
// DefaultSnippetPrompt.
func NewSynthesizer(completer Completer, model, prompt string) *Synthesizer {
	if prompt == "" {
		prompt = DefaultSnippetPrompt
	}
	return &Synthesizer{completer: completer, model: model, prompt: prompt}
}

// Model returns the model used for synthesis.
func (s *Synthesizer) Model() string { return s.model }

// Complete makes the synthesis call and returns the raw answer.
func (s *Synthesizer) Complete(ctx context.Context, query string, contexts []SourceChunks) (string, error) {
	user := ""
	if built := BuildContext(contexts); built != "" {
		user = contextPreamble + built
	}
	answer, err := s.completer.Complete(ctx, CompletionRequest{
		Model:  s.model,
		System: synthesisSystemPrompt(query, s.prompt),
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return answer, nil
}

// BuildContext renders ranked chunks as "Source: <title> (<link>)" sections
// separated by horizontal rules.
func BuildContext(contexts []SourceChunks) string {
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if len(c.Chunks) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s (%s)\n", c.Source.Title, c.Source.Link)
		b.WriteString(strings.Join(c.Chunks, "\n"))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, sourceSeparator)
}

type rawSynthesis struct {
	What         []string `json:"what"`
	Why          []string `json:"why"`
	When         []string `json:"when"`
	Where        []string `json:"where"`
	How          []string `json:"how"`
	AmazingFacts []string `json:"amazingfacts"`
	Abstract     string   `json:"abstract"`
	Tags         []string `json:"tags"`
}

// ParseSynthesis parses the model's JSON answer. Empty output, "{}",
// malformed JSON and objects without any of the five categories yield
// ErrInsufficientInformation.
func ParseSynthesis(answer string) (Synthesis, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == "{}" {
		return Synthesis{}, ErrInsufficientInformation
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(answer), &keys); err != nil {
		return Synthesis{}, fmt.Errorf("%w: %w", ErrInsufficientInformation, err)
	}
	present := false
	for _, k := range []string{"what", "why", "when", "where", "how"} {
		if _, ok := keys[k]; ok {
			present = true
			break
		}
	}
	if !present {
		return Synthesis{}, ErrInsufficientInformation
	}

	var raw rawSynthesis
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		return Synthesis{}, fmt.Errorf("%w: %w", ErrInsufficientInformation, err)
	}

	content := snippet.Content{
		What:         cleanSentences(raw.What),
		Why:          cleanSentences(raw.Why),
		When:         cleanSentences(raw.When),
		Where:        cleanSentences(raw.Where),
		How:          cleanSentences(raw.How),
		AmazingFacts: cleanSentences(raw.AmazingFacts),
	}
	if len(content.AmazingFacts) > maxAmazingFacts {
		content.AmazingFacts = content.AmazingFacts[:maxAmazingFacts]
	}
	if content.IsEmpty() {
		return Synthesis{}, ErrInsufficientInformation
	}

	return Synthesis{
		Content:  content,
		Abstract: strings.TrimSpace(raw.Abstract),
		Tags:     CleanTags(raw.Tags),
	}, nil
}

func cleanSentences(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CleanTags trims tags, strips leading hashes, drops duplicates
// case-insensitively and keeps at most five.
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, min(len(tags), maxTags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
