package snippet

import (
	"slices"
	"time"
)

// Embedding is the vector of a snippet's abstract. It is stored once, in the
// same transaction as its snippet, and referenced by id from both sides.
type Embedding struct {
	id        string
	snippetID string
	text      string
	vector    []float64
	createdAt time.Time
}

// NewEmbedding creates an Embedding for abstract text.
func NewEmbedding(id, snippetID, text string, vector []float64) Embedding {
	return Embedding{
		id:        id,
		snippetID: snippetID,
		text:      text,
		vector:    slices.Clone(vector),
		createdAt: time.Now().UTC(),
	}
}

// ID returns the embedding id.
func (e Embedding) ID() string { return e.id }

// SnippetID returns the owning snippet's id.
func (e Embedding) SnippetID() string { return e.snippetID }

// Text returns the embedded abstract.
func (e Embedding) Text() string { return e.text }

// Vector returns a copy of the vector.
func (e Embedding) Vector() []float64 { return slices.Clone(e.vector) }

// Dimension returns the vector length.
func (e Embedding) Dimension() int { return len(e.vector) }

// CreatedAt returns when the embedding was created.
func (e Embedding) CreatedAt() time.Time { return e.createdAt }

// ForSnippet returns a copy owned by snippetID.
func (e Embedding) ForSnippet(snippetID string) Embedding {
	e.snippetID = snippetID
	return e
}

// WithCreatedAt returns a copy with a creation time (used by stores).
func (e Embedding) WithCreatedAt(t time.Time) Embedding {
	e.createdAt = t
	return e
}
