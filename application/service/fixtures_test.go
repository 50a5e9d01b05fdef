package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/domain/user"
	"github.com/helixml/snippets/infrastructure/persistence"
	"github.com/helixml/snippets/internal/database"
	"github.com/helixml/snippets/internal/testdb"
)

type stores struct {
	db            database.Database
	users         persistence.UserStore
	snippets      persistence.SnippetStore
	embeddings    *persistence.SQLiteEmbeddingStore
	likes         persistence.LikeStore
	saves         persistence.SaveStore
	notes         persistence.NoteStore
	notifications persistence.NotificationStore
	runs          persistence.RunStore
	tasks         persistence.TaskStore
}

func newStores(t *testing.T) stores {
	t.Helper()
	db := testdb.New(t)
	embeddings := persistence.NewSQLiteEmbeddingStore(db)
	return stores{
		db:            db,
		users:         persistence.NewUserStore(db),
		snippets:      persistence.NewSnippetStore(db, embeddings),
		embeddings:    embeddings,
		likes:         persistence.NewLikeStore(db),
		saves:         persistence.NewSaveStore(db),
		notes:         persistence.NewNoteStore(db),
		notifications: persistence.NewNotificationStore(db),
		runs:          persistence.NewRunStore(db),
		tasks:         persistence.NewTaskStore(db),
	}
}

func (s stores) addUser(t *testing.T, externalID string) user.User {
	t.Helper()
	u, err := s.users.Upsert(context.Background(), user.NewUser("user-"+externalID, user.Profile{ExternalID: externalID, FirstName: "Test"}))
	require.NoError(t, err)
	return u
}

// addSnippet stores a snippet, with an abstract embedding when vector is set.
func (s stores) addSnippet(t *testing.T, id string, createdAt time.Time, vector []float64) snippet.Snippet {
	t.Helper()
	sn := snippet.NewSnippet(id, "title "+id, snippet.Content{What: []string{"About " + id + "."}}).
		WithCreatedAt(createdAt)
	var emb *snippet.Embedding
	if vector != nil {
		sn = sn.WithAbstract("abstract " + id).WithTags([]string{"tag"})
		e := snippet.NewEmbedding("emb-"+id, "", "abstract "+id, vector)
		emb = &e
	}
	stored, err := s.snippets.Create(context.Background(), sn, emb)
	require.NoError(t, err)
	return stored
}
