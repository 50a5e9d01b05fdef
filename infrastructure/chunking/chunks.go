// Package chunking provides fixed-size text chunking with overlap for
// ranking page text against a query.
package chunking

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkParams configures the chunking algorithm. All sizes are in runes.
type ChunkParams struct {
	Size    int
	Overlap int
	MinSize int
}

// DefaultChunkParams returns the defaults used for web page text.
func DefaultChunkParams() ChunkParams {
	return ChunkParams{
		Size:    250,
		Overlap: 100,
		MinSize: 10,
	}
}

// Validate checks that the parameters can produce chunks.
func (p ChunkParams) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("size (%d) must be positive", p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return fmt.Errorf("overlap (%d) must be in [0, size (%d))", p.Overlap, p.Size)
	}
	return nil
}

// Chunk is a single text chunk with its rune offset in the original content.
type Chunk struct {
	content string
	offset  int
}

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Offset returns the rune offset of this chunk in the original content.
func (c Chunk) Offset() int { return c.offset }

// TextChunks holds the result of splitting content into fixed-size chunks.
type TextChunks struct {
	chunks []Chunk
}

// NewTextChunks splits content into chunks of at most Size runes.
//
// Words are accumulated until the next one would exceed Size; the following
// chunk starts with the trailing words of the previous one, up to Overlap
// runes. A single word longer than Size is split on rune boundaries.
// Chunks shorter than MinSize are dropped.
func NewTextChunks(content string, params ChunkParams) (TextChunks, error) {
	if err := params.Validate(); err != nil {
		return TextChunks{}, err
	}

	if strings.TrimSpace(content) == "" {
		return TextChunks{}, nil
	}

	var chunks []Chunk
	emit := func(text string, offset int) {
		text = strings.TrimSpace(text)
		if text == "" || utf8.RuneCountInString(text) < params.MinSize {
			return
		}
		chunks = append(chunks, Chunk{content: text, offset: offset})
	}

	var acc []token
	accRunes := 0

	for _, tok := range tokenize(content) {
		if tok.runes > params.Size {
			if accRunes > 0 {
				emit(joinTokens(acc), acc[0].start)
				acc = nil
				accRunes = 0
			}
			for _, sub := range splitRunes(tok.text, params.Size, params.Overlap) {
				emit(sub.content, tok.start+sub.offset)
			}
			continue
		}

		if accRunes+tok.runes > params.Size && accRunes > 0 {
			emit(joinTokens(acc), acc[0].start)

			acc, accRunes = overlapTokens(acc, params.Overlap)
			for accRunes+tok.runes > params.Size && len(acc) > 0 {
				accRunes -= acc[0].runes
				acc = acc[1:]
			}
		}

		acc = append(acc, tok)
		accRunes += tok.runes
	}

	if accRunes > 0 {
		emit(joinTokens(acc), acc[0].start)
	}

	return TextChunks{chunks: chunks}, nil
}

// All returns all chunks.
func (t TextChunks) All() []Chunk { return t.chunks }

// Texts returns the content of every chunk.
func (t TextChunks) Texts() []string {
	out := make([]string, len(t.chunks))
	for i, c := range t.chunks {
		out[i] = c.content
	}
	return out
}

// token is a word with its trailing whitespace.
type token struct {
	text  string
	start int
	runes int
}

// tokenize splits content at whitespace boundaries, keeping whitespace
// attached to the preceding word.
func tokenize(content string) []token {
	runes := []rune(content)
	var tokens []token
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) && unicode.IsSpace(runes[i-1]) {
			tokens = append(tokens, token{text: string(runes[start:i]), start: start, runes: i - start})
			start = i
		}
	}
	if start < len(runes) {
		tokens = append(tokens, token{text: string(runes[start:]), start: start, runes: len(runes) - start})
	}
	return tokens
}

func joinTokens(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.text)
	}
	return b.String()
}

// overlapTokens walks backward through tokens and returns the trailing ones
// whose total rune count fits within the overlap budget.
func overlapTokens(tokens []token, overlap int) ([]token, int) {
	if overlap == 0 {
		return nil, 0
	}
	total := 0
	start := len(tokens)
	for i := len(tokens) - 1; i >= 0; i-- {
		if total+tokens[i].runes > overlap {
			break
		}
		total += tokens[i].runes
		start = i
	}
	if start == len(tokens) {
		return nil, 0
	}
	carried := make([]token, len(tokens)-start)
	copy(carried, tokens[start:])
	return carried, total
}

// subChunk is a piece of an oversized word with its rune offset in the word.
type subChunk struct {
	content string
	offset  int
}

// splitRunes splits content into pieces of at most size runes with overlap.
func splitRunes(content string, size int, overlap int) []subChunk {
	runes := []rune(content)
	step := size - overlap
	var result []subChunk
	for i := 0; i < len(runes); i += step {
		end := min(i+size, len(runes))
		slice := runes[i:end]
		if i > 0 && len(slice) <= overlap {
			break
		}
		result = append(result, subChunk{content: string(slice), offset: i})
	}
	return result
}

// Chunker splits page text with fixed parameters.
type Chunker struct {
	params ChunkParams
}

// NewChunker creates a Chunker.
func NewChunker(params ChunkParams) (*Chunker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{params: params}, nil
}

// Chunk splits text into chunk contents.
func (c *Chunker) Chunk(text string) ([]string, error) {
	chunks, err := NewTextChunks(text, c.params)
	if err != nil {
		return nil, err
	}
	return chunks.Texts(), nil
}
