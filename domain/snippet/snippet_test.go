package snippet

import (
	"testing"
	"time"

	"github.com/helixml/snippets/domain/repository"
	"github.com/stretchr/testify/assert"
)

func TestNewSnippet_NormalizesContent(t *testing.T) {
	s := NewSnippet("s1", "photosynthesis", Content{What: []string{"Plants make **sugar**."}})

	c := s.Content()
	assert.Equal(t, []string{"Plants make **sugar**."}, c.What)
	assert.NotNil(t, c.When)
	assert.NotNil(t, c.Where)
	assert.NotNil(t, c.Why)
	assert.NotNil(t, c.How)
	assert.NotNil(t, c.AmazingFacts)
	assert.Equal(t, 0, s.LikesCount())
	assert.Equal(t, DefaultRequestorName, s.RequestorName())
	assert.Empty(t, s.Tags())
	assert.Empty(t, s.References())
	assert.False(t, s.CreatedAt().IsZero())
}

func TestContent_IsEmpty(t *testing.T) {
	assert.True(t, Content{}.IsEmpty())
	assert.True(t, Content{AmazingFacts: []string{"x"}}.IsEmpty())
	assert.False(t, Content{How: []string{"x"}}.IsEmpty())
}

func TestSnippet_Builders(t *testing.T) {
	s := NewSnippet("s1", "q", Content{}).
		WithAbstract("  Plants turn light into sugar.  ").
		WithTags([]string{"biology"}).
		WithReferences([]Reference{{Link: "https://a.example", Title: "A"}}).
		WithRequest("req", "u1", "").
		WithAbstractEmbeddingID("e1").
		WithGeneration("llama3-70b-8192 | 4 seconds", "photosynthesis overview").
		WithLikesCount(-3)

	assert.Equal(t, "Plants turn light into sugar.", s.Abstract())
	assert.True(t, s.HasAbstract())
	assert.Equal(t, []string{"biology"}, s.Tags())
	assert.Len(t, s.References(), 1)
	assert.Equal(t, "req", s.RequestID())
	assert.Equal(t, "u1", s.RequestedBy())
	assert.Equal(t, DefaultRequestorName, s.RequestorName())
	assert.Equal(t, "e1", s.AbstractEmbeddingID())
	assert.Equal(t, "photosynthesis overview", s.TopicGenerated())
	assert.Equal(t, 0, s.LikesCount())

	named := s.WithRequest("req", "u1", "Ada")
	assert.Equal(t, "Ada", named.RequestorName())
}

func TestSnippet_Summary(t *testing.T) {
	s := NewSnippet("s1", "q", Content{})
	sum := s.Summary()
	assert.Equal(t, NoAbstract, sum.Abstract)
	assert.Equal(t, []string{}, sum.Tags)

	sum = s.WithAbstract("abs").WithTags([]string{"a"}).Summary()
	assert.Equal(t, Summary{ID: "s1", Title: "q", Abstract: "abs", Tags: []string{"a"}}, sum)
}

func TestSnippet_TagsAreCopied(t *testing.T) {
	tags := []string{"a"}
	s := NewSnippet("s1", "q", Content{}).WithTags(tags)
	tags[0] = "b"
	got := s.Tags()
	got[0] = "c"
	assert.Equal(t, []string{"a"}, s.Tags())
}

func TestEmbedding(t *testing.T) {
	vec := []float64{0.1, 0.2}
	e := NewEmbedding("e1", "", "abstract", vec)
	vec[0] = 9

	assert.Equal(t, []float64{0.1, 0.2}, e.Vector())
	assert.Equal(t, 2, e.Dimension())
	assert.Equal(t, "s1", e.ForSnippet("s1").SnippetID())
	assert.Empty(t, e.SnippetID())
}

func TestSort(t *testing.T) {
	assert.Equal(t, SortTrending, ParseSort("trending"))
	assert.Equal(t, SortNew, ParseSort(""))
	assert.Equal(t, SortNew, ParseSort("bogus"))

	q := repository.Build(SortTrending.Options()...)
	orders := q.Orders()
	assert.Len(t, orders, 2)
	assert.Equal(t, "likes_count", orders[0].Field())
	assert.Equal(t, "created_at", orders[1].Field())

	q = repository.Build(SortNew.Options()...)
	assert.Equal(t, "created_at", q.Orders()[0].Field())
}

func TestModelUsage(t *testing.T) {
	assert.Equal(t, "llama3-70b-8192 | 12.345 second(s)", ModelUsage("llama3-70b-8192", 12345*time.Millisecond+600*time.Microsecond))
	assert.Equal(t, "gpt | 3 second(s)", ModelUsage("gpt", 3*time.Second))
	assert.Equal(t, "gpt | 0 second(s)", ModelUsage("gpt", 0))
}
