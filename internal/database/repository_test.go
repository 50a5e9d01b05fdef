package database

import (
	"context"
	"testing"

	"github.com/helixml/snippets/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotes(t *testing.T, db Database) Repository[noteValue, noteRow] {
	t.Helper()
	rows := []noteRow{
		{ID: "1", UserID: "u1", Note: "Chlorophyll absorbs light"},
		{ID: "2", UserID: "u1", Note: ""},
		{ID: "3", UserID: "u1", Note: "leaf structure"},
		{ID: "4", UserID: "u2", Note: "leaf"},
	}
	require.NoError(t, db.Session(context.Background()).Create(&rows).Error)
	return NewRepository[noteValue, noteRow](db, noteMapper{}, "note")
}

func TestRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo := seedNotes(t, openMemory(t))

	found, err := repo.Find(ctx,
		repository.WithCondition("user_id", "u1"),
		repository.WithConditionNot("note", ""),
		repository.WithOrderDesc("id"),
	)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "3", found[0].id)
	assert.Equal(t, "1", found[1].id)
}

func TestRepository_FindContains(t *testing.T) {
	ctx := context.Background()
	repo := seedNotes(t, openMemory(t))

	found, err := repo.Find(ctx, repository.WithConditionContains("note", "LEAF"))
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRepository_FindOneNotFound(t *testing.T) {
	ctx := context.Background()
	repo := seedNotes(t, openMemory(t))

	_, err := repo.FindOne(ctx, repository.WithID("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := repo.FindOne(ctx, repository.WithID("4"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", v.note)
}

func TestRepository_CountExistsDelete(t *testing.T) {
	ctx := context.Background()
	repo := seedNotes(t, openMemory(t))

	n, err := repo.Count(ctx, repository.WithCondition("user_id", "u1"), repository.WithLimit(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := repo.Exists(ctx, repository.WithIDIn([]string{"2", "9"}))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.DeleteBy(ctx, repository.WithCondition("user_id", "u2")))
	ok, err = repo.Exists(ctx, repository.WithCondition("user_id", "u2"))
	require.NoError(t, err)
	assert.False(t, ok)
}
