package notification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratedPayload(t *testing.T) {
	p := GeneratedPayload("photosynthesis", "0190-abc")
	assert.Equal(t, "photosynthesis|snippet/0190-abc", p)

	q, link := ParsePayload(p)
	assert.Equal(t, "photosynthesis", q)
	assert.Equal(t, "snippet/0190-abc", link)
}

func TestGeneratedPayload_QueryWithSeparator(t *testing.T) {
	p := GeneratedPayload("cats | dogs", "abc")
	assert.Equal(t, 1, strings.Count(p, "|"))

	q, link := ParsePayload(p)
	assert.Equal(t, "cats / dogs", q)
	assert.Equal(t, "snippet/abc", link)

	n := NewNotification("n1", "u1", KindGeneratedSnippet, p)
	assert.Equal(t, "snippet/abc", n.Link())
}

func TestQueryPayload(t *testing.T) {
	n := NewNotification("n1", "u1", KindNoInformation, QueryPayload("a|b||c"))
	assert.Equal(t, "a/b//c", n.Query())
	assert.Empty(t, n.Link())
}

func TestParsePayload_SplitsOnFirstPipe(t *testing.T) {
	q, link := ParsePayload("a|b|snippet/1")
	assert.Equal(t, "a", q)
	assert.Equal(t, "b|snippet/1", link)

	q, link = ParsePayload("xqzvplm")
	assert.Equal(t, "xqzvplm", q)
	assert.Empty(t, link)
}

func TestNotification(t *testing.T) {
	n := NewNotification("n1", "u1", KindGeneratedSnippet, GeneratedPayload("q", "s1")).
		WithIdempotencyKey("req-1").
		WithCreator("u1")

	assert.Equal(t, "q", n.Query())
	assert.Equal(t, "snippet/s1", n.Link())
	assert.Equal(t, "req-1", n.IdempotencyKey())
	assert.False(t, n.IsRead())
	assert.False(t, n.IsCleared())
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindError.Valid())
	assert.True(t, KindNoInformation.Valid())
	assert.True(t, KindGeneratedSnippet.Valid())
	assert.False(t, Kind("other").Valid())
}
