package persistence

import (
	"context"
	"testing"

	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationStore_CreateIsIdempotentByKey(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore(newTestDB(t))

	first := notification.NewNotification("n1", "u1", notification.KindGeneratedSnippet,
		notification.GeneratedPayload("photosynthesis", "snip-1")).WithIdempotencyKey("req-1")
	stored, created, err := store.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "n1", stored.ID())

	again := notification.NewNotification("n2", "u1", notification.KindError, "photosynthesis").
		WithIdempotencyKey("req-1")
	stored, created, err = store.Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "n1", stored.ID())
	assert.Equal(t, notification.KindGeneratedSnippet, stored.Kind())
	assert.Equal(t, "snippet/snip-1", stored.Link())

	count, err := store.Count(ctx, notification.WithReceiverID("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotificationStore_WithoutKey(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore(newTestDB(t))

	for _, id := range []string{"n1", "n2"} {
		_, created, err := store.Create(ctx, notification.NewNotification(id, "u1", notification.KindNoInformation, "q"))
		require.NoError(t, err)
		assert.True(t, created)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNotificationStore_MarkReadAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore(newTestDB(t))

	for _, id := range []string{"n1", "n2", "n3"} {
		_, _, err := store.Create(ctx, notification.NewNotification(id, "u1", notification.KindError, "q"))
		require.NoError(t, err)
	}
	_, _, err := store.Create(ctx, notification.NewNotification("other", "u2", notification.KindError, "q"))
	require.NoError(t, err)

	changed, err := store.MarkRead(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	changed, err = store.MarkRead(ctx, "u2", "n2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed, "cannot mark another user's notification")

	unread, err := store.Count(ctx, notification.WithReceiverID("u1"), notification.WithUnread())
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	changed, err = store.MarkRead(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	cleared, err := store.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)

	visible, err := store.Find(ctx, notification.WithReceiverID("u1"), notification.WithUncleared())
	require.NoError(t, err)
	assert.Empty(t, visible)

	others, err := store.Find(ctx, notification.WithReceiverID("u2"), repository.WithOrderDesc("created_at"))
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.False(t, others[0].IsRead())
}
