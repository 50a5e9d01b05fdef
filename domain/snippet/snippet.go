// Package snippet provides the snippet aggregate: a 5W1H summary of a topic
// with its references and abstract embedding.
package snippet

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultRequestorName is recorded when the requesting user has no first name.
const DefaultRequestorName = "Snippets user"

// Content is the 5W1H body of a snippet. Every category is an ordered list of
// markdown strings and is never nil.
type Content struct {
	What         []string `json:"what"`
	When         []string `json:"when"`
	Where        []string `json:"where"`
	Why          []string `json:"why"`
	How          []string `json:"how"`
	AmazingFacts []string `json:"amazingfacts"`
}

// Normalized returns a copy with nil categories replaced by empty lists.
func (c Content) Normalized() Content {
	return Content{
		What:         nonNil(c.What),
		When:         nonNil(c.When),
		Where:        nonNil(c.Where),
		Why:          nonNil(c.Why),
		How:          nonNil(c.How),
		AmazingFacts: nonNil(c.AmazingFacts),
	}
}

// IsEmpty reports whether all five categories are empty.
func (c Content) IsEmpty() bool {
	return len(c.What) == 0 && len(c.When) == 0 && len(c.Where) == 0 &&
		len(c.Why) == 0 && len(c.How) == 0
}

// Reference is a web source the snippet was synthesized from.
type Reference struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Snippet is a generated summary. Everything except the like count is fixed
// at creation.
type Snippet struct {
	id                  string
	requestID           string
	title               string
	content             Content
	abstract            string
	tags                []string
	references          []Reference
	likesCount          int
	requestedBy         string
	requestorName       string
	abstractEmbeddingID string
	modelUsed           string
	topicGenerated      string
	createdAt           time.Time
}

// NewSnippet creates a Snippet titled with the original query.
func NewSnippet(id, title string, content Content) Snippet {
	return Snippet{
		id:            id,
		title:         title,
		content:       content.Normalized(),
		tags:          []string{},
		references:    []Reference{},
		requestorName: DefaultRequestorName,
		createdAt:     time.Now().UTC(),
	}
}

// ID returns the snippet id.
func (s Snippet) ID() string { return s.id }

// RequestID returns the generation request that produced the snippet.
func (s Snippet) RequestID() string { return s.requestID }

// Title returns the original search query.
func (s Snippet) Title() string { return s.title }

// Content returns the 5W1H body.
func (s Snippet) Content() Content { return s.content.Normalized() }

// Abstract returns the plain-text abstract, possibly empty.
func (s Snippet) Abstract() string { return s.abstract }

// Tags returns the tags.
func (s Snippet) Tags() []string { return slices.Clone(s.tags) }

// References returns the sources in search rank order.
func (s Snippet) References() []Reference { return slices.Clone(s.references) }

// LikesCount returns the number of likes.
func (s Snippet) LikesCount() int { return s.likesCount }

// RequestedBy returns the requesting user's id, if known.
func (s Snippet) RequestedBy() string { return s.requestedBy }

// RequestorName returns the requesting user's display name snapshot.
func (s Snippet) RequestorName() string { return s.requestorName }

// AbstractEmbeddingID returns the id of the abstract embedding, if any.
func (s Snippet) AbstractEmbeddingID() string { return s.abstractEmbeddingID }

// ModelUsed returns the model and wall time that produced the snippet.
func (s Snippet) ModelUsed() string { return s.modelUsed }

// TopicGenerated returns the refined topic when refinement happened.
func (s Snippet) TopicGenerated() string { return s.topicGenerated }

// CreatedAt returns when the snippet was created.
func (s Snippet) CreatedAt() time.Time { return s.createdAt }

// HasAbstract reports whether the snippet carries a non-blank abstract.
func (s Snippet) HasAbstract() bool { return strings.TrimSpace(s.abstract) != "" }

// WithAbstract returns a copy with an abstract.
func (s Snippet) WithAbstract(abstract string) Snippet {
	s.abstract = strings.TrimSpace(abstract)
	return s
}

// WithTags returns a copy with tags.
func (s Snippet) WithTags(tags []string) Snippet {
	s.tags = nonNil(slices.Clone(tags))
	return s
}

// WithReferences returns a copy with references.
func (s Snippet) WithReferences(refs []Reference) Snippet {
	if refs == nil {
		refs = []Reference{}
	}
	s.references = slices.Clone(refs)
	return s
}

// WithRequest returns a copy attributed to a generation request and user.
// An empty requestor name falls back to DefaultRequestorName.
func (s Snippet) WithRequest(requestID, userID, requestorName string) Snippet {
	s.requestID = requestID
	s.requestedBy = userID
	s.requestorName = strings.TrimSpace(requestorName)
	if s.requestorName == "" {
		s.requestorName = DefaultRequestorName
	}
	return s
}

// WithAbstractEmbeddingID returns a copy referencing its abstract embedding.
func (s Snippet) WithAbstractEmbeddingID(id string) Snippet {
	s.abstractEmbeddingID = id
	return s
}

// ModelUsage formats the model and generation wall time as
// "<model> | <seconds> second(s)", with millisecond precision.
func ModelUsage(model string, elapsed time.Duration) string {
	secs := float64(elapsed.Milliseconds()) / 1000
	return model + " | " + strconv.FormatFloat(secs, 'f', -1, 64) + " second(s)"
}

// WithGeneration returns a copy recording the model and refined topic.
func (s Snippet) WithGeneration(modelUsed, topicGenerated string) Snippet {
	s.modelUsed = modelUsed
	s.topicGenerated = topicGenerated
	return s
}

// WithLikesCount returns a copy with a like count (used by stores).
func (s Snippet) WithLikesCount(n int) Snippet {
	s.likesCount = max(n, 0)
	return s
}

// WithCreatedAt returns a copy with a creation time (used by stores).
func (s Snippet) WithCreatedAt(t time.Time) Snippet {
	s.createdAt = t
	return s
}

// Summary is the lightweight projection returned by similarity search.
type Summary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Tags     []string `json:"tags"`
}

// NoAbstract is shown in summaries of snippets without an abstract.
const NoAbstract = "No abstract found!"

// Summary projects the snippet for listings of related snippets.
func (s Snippet) Summary() Summary {
	abstract := s.abstract
	if !s.HasAbstract() {
		abstract = NoAbstract
	}
	return Summary{
		ID:       s.id,
		Title:    s.title,
		Abstract: abstract,
		Tags:     s.Tags(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
