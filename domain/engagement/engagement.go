// Package engagement provides user interactions with snippets: likes, saves
// and personal notes.
package engagement

import (
	"context"
	"strings"
	"time"

	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/snippet"
)

// Mark is a like or a save: at most one per (snippet, user).
type Mark struct {
	id        string
	snippetID string
	userID    string
	createdAt time.Time
}

// NewMark creates a Mark.
func NewMark(id, snippetID, userID string) Mark {
	return Mark{id: id, snippetID: snippetID, userID: userID, createdAt: time.Now().UTC()}
}

// NewMarkFull creates a Mark with all fields (used by stores).
func NewMarkFull(id, snippetID, userID string, createdAt time.Time) Mark {
	return Mark{id: id, snippetID: snippetID, userID: userID, createdAt: createdAt}
}

// ID returns the mark id.
func (m Mark) ID() string { return m.id }

// SnippetID returns the marked snippet.
func (m Mark) SnippetID() string { return m.snippetID }

// UserID returns the marking user.
func (m Mark) UserID() string { return m.userID }

// CreatedAt returns when the mark was made.
func (m Mark) CreatedAt() time.Time { return m.createdAt }

// Note is a user's private annotation of a snippet, one per (snippet, user).
// An empty text means "no note".
type Note struct {
	id        string
	snippetID string
	userID    string
	text      string
	createdAt time.Time
	updatedAt time.Time
}

// NewNote creates a Note.
func NewNote(id, snippetID, userID, text string) Note {
	now := time.Now().UTC()
	return Note{id: id, snippetID: snippetID, userID: userID, text: text, createdAt: now, updatedAt: now}
}

// NewNoteFull creates a Note with all fields (used by stores).
func NewNoteFull(id, snippetID, userID, text string, createdAt, updatedAt time.Time) Note {
	return Note{id: id, snippetID: snippetID, userID: userID, text: text, createdAt: createdAt, updatedAt: updatedAt}
}

// ID returns the note id.
func (n Note) ID() string { return n.id }

// SnippetID returns the annotated snippet.
func (n Note) SnippetID() string { return n.snippetID }

// UserID returns the author.
func (n Note) UserID() string { return n.userID }

// Text returns the note text.
func (n Note) Text() string { return n.text }

// IsEmpty reports whether the note has no visible text.
func (n Note) IsEmpty() bool { return strings.TrimSpace(n.text) == "" }

// CreatedAt returns when the note was first written.
func (n Note) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns when the note last changed.
func (n Note) UpdatedAt() time.Time { return n.updatedAt }

// NotedSnippet is a non-empty note joined with its snippet.
type NotedSnippet struct {
	Snippet snippet.Snippet
	Note    Note
}

// SavedSnippet is a save joined with its snippet.
type SavedSnippet struct {
	Snippet snippet.Snippet
	SavedAt time.Time
}

// Status is one user's engagement with one snippet.
type Status struct {
	Liked bool
	Saved bool
	Note  string
}

// WithUserID filters by user id.
func WithUserID(id string) repository.Option {
	return repository.WithCondition("user_id", id)
}

// WithSnippetID filters by snippet id.
func WithSnippetID(id string) repository.Option {
	return repository.WithCondition("snippet_id", id)
}

// WithNoteText keeps notes containing substr, case-insensitively.
func WithNoteText(substr string) repository.Option {
	return repository.WithConditionContains("note", substr)
}

// LikeStore persists likes together with the snippet like counter.
type LikeStore interface {
	// Like records a like and increments the snippet's count in one
	// transaction. Liking twice changes nothing and returns false.
	Like(ctx context.Context, mark Mark) (bool, error)

	// Unlike removes a like and decrements the count in one transaction.
	// Unliking a snippet that is not liked changes nothing and returns false.
	Unlike(ctx context.Context, snippetID, userID string) (bool, error)

	// Exists reports whether the user likes the snippet.
	Exists(ctx context.Context, snippetID, userID string) (bool, error)
}

// SaveStore persists saves.
type SaveStore interface {
	// Save records a save; saving twice returns false.
	Save(ctx context.Context, mark Mark) (bool, error)

	// Unsave removes a save; returns false if there was none.
	Unsave(ctx context.Context, snippetID, userID string) (bool, error)

	// Exists reports whether the user saved the snippet.
	Exists(ctx context.Context, snippetID, userID string) (bool, error)

	// Saved lists the user's saved snippets, newest save first.
	Saved(ctx context.Context, userID string, options ...repository.Option) ([]SavedSnippet, error)

	// Count returns the number of saves matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)
}

// NoteStore persists notes.
type NoteStore interface {
	// Upsert writes the note for (snippet, user), replacing any previous text.
	Upsert(ctx context.Context, note Note) (Note, error)

	// Get retrieves the note for (snippet, user).
	Get(ctx context.Context, snippetID, userID string) (Note, error)

	// Noted lists non-empty notes joined with their snippets, most recently
	// updated first. Notes whose snippet no longer exists are skipped.
	Noted(ctx context.Context, userID string, options ...repository.Option) ([]NotedSnippet, error)
}
