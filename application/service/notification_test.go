package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/internal/database"
)

func TestNotification_ListReadClear(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	alice := s.addUser(t, "alice")
	bob := s.addUser(t, "bob")

	for i, kind := range []notification.Kind{notification.KindError, notification.KindGeneratedSnippet} {
		n := notification.NewNotificationFull(
			[]string{"n1", "n2"}[i], alice.ID(), "", kind, "q", "",
			false, false, time.Now().UTC().Add(time.Duration(i)*time.Second),
		)
		_, _, err := s.notifications.Create(ctx, n)
		require.NoError(t, err)
	}
	_, _, err := s.notifications.Create(ctx, notification.NewNotification("n3", bob.ID(), notification.KindError, "q"))
	require.NoError(t, err)

	svc := NewNotification(s.notifications)

	list, err := svc.List(ctx, alice.ID(), NotificationListParams{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID(), "newest first")

	unread, err := svc.UnreadCount(ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	changed, err := svc.MarkRead(ctx, alice.ID(), "n1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	changed, err = svc.MarkRead(ctx, alice.ID(), "n3")
	require.NoError(t, err)
	assert.Zero(t, changed, "other users' notifications are untouched")

	changed, err = svc.MarkAllRead(ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	unread, err = svc.UnreadCount(ctx, alice.ID())
	require.NoError(t, err)
	assert.Zero(t, unread)

	_, err = svc.Clear(ctx, alice.ID())
	require.NoError(t, err)

	list, err = svc.List(ctx, alice.ID(), NotificationListParams{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.List(ctx, alice.ID(), NotificationListParams{IncludeCleared: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.MarkRead(ctx, alice.ID(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUser_ProviderSync(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	svc := NewUser(s.users, discard)

	created, err := svc.UpsertFromProvider(ctx, ProviderUser{ExternalID: "ext-1", FirstName: "Ada", PrimaryEmail: "ada@example.com"})
	require.NoError(t, err)

	updated, err := svc.UpsertFromProvider(ctx, ProviderUser{ExternalID: "ext-1", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, created.ID(), updated.ID(), "local id is kept")
	assert.Equal(t, "Lovelace", updated.LastName())

	got, err := svc.ByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), got.ID())

	require.NoError(t, svc.DeleteFromProvider(ctx, "ext-1"))
	require.NoError(t, svc.DeleteFromProvider(ctx, "ext-1"), "deleting twice is fine")

	_, err = svc.ByExternalID(ctx, "ext-1")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = svc.UpsertFromProvider(ctx, ProviderUser{})
	assert.ErrorIs(t, err, ErrValidation)
}
