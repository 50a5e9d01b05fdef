package generation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContext(t *testing.T) {
	ctx := BuildContext([]SourceChunks{
		{Source: Source{Title: "Wiki", Link: "https://w"}, Chunks: []string{"one", "two"}},
		{Source: Source{Title: "Skip", Link: "https://s"}},
		{Source: Source{Title: "Brit", Link: "https://b"}, Chunks: []string{"three"}},
	})

	assert.Equal(t, "Source: Wiki (https://w)\none\ntwo\n\n---\n\nSource: Brit (https://b)\nthree", ctx)
	assert.Empty(t, BuildContext(nil))
}

func TestSynthesizer_Complete(t *testing.T) {
	completer := &fakeCompleter{answer: `{"what":["a"]}`}
	s := NewSynthesizer(completer, "snippet-model", "")

	_, err := s.Complete(context.Background(), "photosynthesis", []SourceChunks{
		{Source: Source{Title: "Wiki", Link: "https://w"}, Chunks: []string{"chunk"}},
	})
	require.NoError(t, err)

	req := completer.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, "snippet-model", req.Model)
	assert.True(t, strings.HasPrefix(req.System, "Here is my topic - photosynthesis. Create a comprehensive summary"))
	assert.True(t, strings.HasPrefix(req.User, "Here are the top results"))
	assert.True(t, strings.HasSuffix(req.User, "- Source: Wiki (https://w)\nchunk"))
}

func TestSynthesizer_CompleteWithoutContext(t *testing.T) {
	completer := &fakeCompleter{answer: "{}"}
	s := NewSynthesizer(completer, "m", "Be brief.")

	_, err := s.Complete(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, "Here is my topic - q. Be brief.", completer.requests[0].System)
	assert.Empty(t, completer.requests[0].User)
}

func TestParseSynthesis(t *testing.T) {
	answer := `{
		"what": ["**Photosynthesis** is how plants make food.", "It uses light."],
		"why": ["It feeds the biosphere."],
		"when": [],
		"how": [" Chlorophyll absorbs light. ", ""],
		"amazingfacts": ["1", "2", "3", "4"],
		"abstract": "  Plants turn light into sugar.  ",
		"tags": ["#biology", "Plants", "plants", " #energy ", "", "light", "cells", "extra"]
	}`

	syn, err := ParseSynthesis(answer)
	require.NoError(t, err)

	assert.Len(t, syn.Content.What, 2)
	assert.Equal(t, []string{"Chlorophyll absorbs light."}, syn.Content.How)
	assert.NotNil(t, syn.Content.Where)
	assert.Empty(t, syn.Content.Where)
	assert.Equal(t, []string{"1", "2", "3"}, syn.Content.AmazingFacts)
	assert.Equal(t, "Plants turn light into sugar.", syn.Abstract)
	assert.Equal(t, []string{"biology", "Plants", "energy", "light", "cells"}, syn.Tags)
}

func TestParseSynthesis_InsufficientInformation(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"empty object":  "{}",
		"spaced object": " {} ",
		"malformed":     `{"what": [`,
		"no categories": `{"abstract": "x", "tags": ["a"]}`,
		"all empty":     `{"what": [], "why": [""], "when": [], "where": [], "how": []}`,
		"array":         `["what"]`,
	}
	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSynthesis(answer)
			assert.ErrorIs(t, err, ErrInsufficientInformation)
		})
	}
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{}, CleanTags(nil))
	assert.Equal(t, []string{"a", "b"}, CleanTags([]string{"##a", "A", "b"}))
}
