package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/helixml/snippets/domain/engagement"
	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likeMark(snippetID, userID string) engagement.Mark {
	return engagement.NewMark("like-"+snippetID+"-"+userID, snippetID, userID)
}

func TestLikeStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	snippets := NewSnippetStore(db, NewSQLiteEmbeddingStore(db))
	likes := NewLikeStore(db)

	_, err := snippets.Create(ctx, sampleSnippet("snip-1"), nil)
	require.NoError(t, err)

	changed, err := likes.Like(ctx, likeMark("snip-1", "u1"))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = likes.Like(ctx, likeMark("snip-1", "u1"))
	require.NoError(t, err)
	assert.False(t, changed, "liking twice is a no-op")

	got, err := snippets.Get(ctx, "snip-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount())

	liked, err := likes.Exists(ctx, "snip-1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)

	changed, err = likes.Unlike(ctx, "snip-1", "u1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = likes.Unlike(ctx, "snip-1", "u1")
	require.NoError(t, err)
	assert.False(t, changed)

	got, err = snippets.Get(ctx, "snip-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikesCount())
}

func TestLikeStore_MissingSnippetRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	likes := NewLikeStore(db)

	_, err := likes.Like(ctx, likeMark("missing", "u1"))
	require.ErrorIs(t, err, database.ErrNotFound)

	liked, err := likes.Exists(ctx, "missing", "u1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestLikeStore_UnlikeNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	snippets := NewSnippetStore(db, NewSQLiteEmbeddingStore(db))
	likes := NewLikeStore(db)

	_, err := snippets.Create(ctx, sampleSnippet("snip-1"), nil)
	require.NoError(t, err)
	_, err = likes.Like(ctx, likeMark("snip-1", "u1"))
	require.NoError(t, err)

	// Simulate a counter that drifted to zero.
	require.NoError(t, db.Session(ctx).Model(&SnippetModel{}).Where("id = ?", "snip-1").Update("likes_count", 0).Error)

	_, err = likes.Unlike(ctx, "snip-1", "u1")
	require.NoError(t, err)

	got, err := snippets.Get(ctx, "snip-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikesCount())
}

func TestSaveStore_Saved(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	snippets := NewSnippetStore(db, NewSQLiteEmbeddingStore(db))
	saves := NewSaveStore(db)

	for _, id := range []string{"snip-1", "snip-2"} {
		_, err := snippets.Create(ctx, sampleSnippet(id), nil)
		require.NoError(t, err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	changed, err := saves.Save(ctx, engagement.NewMarkFull("s1", "snip-1", "u1", base))
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = saves.Save(ctx, engagement.NewMarkFull("s2", "snip-2", "u1", base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = saves.Save(ctx, engagement.NewMarkFull("s3", "gone", "u1", base.Add(2*time.Hour)))
	require.NoError(t, err)

	changed, err = saves.Save(ctx, engagement.NewMark("s4", "snip-1", "u1"))
	require.NoError(t, err)
	assert.False(t, changed)

	saved, err := saves.Saved(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "snip-2", saved[0].Snippet.ID())
	assert.Equal(t, "snip-1", saved[1].Snippet.ID())

	page, err := saves.Saved(ctx, "u1", repository.WithPage(2, 1)...)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "snip-1", page[0].Snippet.ID())

	changed, err = saves.Unsave(ctx, "snip-1", "u1")
	require.NoError(t, err)
	assert.True(t, changed)

	exists, err := saves.Exists(ctx, "snip-1", "u1")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := saves.Count(ctx, engagement.WithUserID("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNoteStore_UpsertAndNoted(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	snippets := NewSnippetStore(db, NewSQLiteEmbeddingStore(db))
	notes := NewNoteStore(db)

	for _, id := range []string{"snip-1", "snip-2", "snip-3"} {
		_, err := snippets.Create(ctx, sampleSnippet(id), nil)
		require.NoError(t, err)
	}

	first, err := notes.Upsert(ctx, engagement.NewNote("n1", "snip-1", "u1", "Remember the Calvin cycle"))
	require.NoError(t, err)
	assert.Equal(t, "n1", first.ID())

	updated, err := notes.Upsert(ctx, engagement.NewNote("n-other", "snip-1", "u1", "Calvin cycle is light independent"))
	require.NoError(t, err)
	assert.Equal(t, "n1", updated.ID(), "upsert keeps the original note id")
	assert.Equal(t, "Calvin cycle is light independent", updated.Text())

	_, err = notes.Upsert(ctx, engagement.NewNote("n2", "snip-2", "u1", "   "))
	require.NoError(t, err)
	_, err = notes.Upsert(ctx, engagement.NewNote("n3", "snip-3", "u1", "Chlorophyll is green"))
	require.NoError(t, err)
	_, err = notes.Upsert(ctx, engagement.NewNote("n4", "missing", "u1", "orphaned"))
	require.NoError(t, err)

	noted, err := notes.Noted(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, noted, 2)
	assert.Equal(t, "snip-3", noted[0].Snippet.ID())
	assert.Equal(t, "snip-1", noted[1].Snippet.ID())

	searched, err := notes.Noted(ctx, "u1", engagement.WithNoteText("CALVIN"))
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "snip-1", searched[0].Snippet.ID())

	got, err := notes.Get(ctx, "snip-2", "u1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	_, err = notes.Get(ctx, "snip-2", "u2")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
