package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/helixml/snippets/domain/engagement"
	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
)

// MaxNoteLength is the longest accepted note, in characters.
const MaxNoteLength = 5000

// LikeResult is the outcome of a like change.
type LikeResult struct {
	Liked      bool
	LikesCount int
}

// SavedPage is one page of a user's saved snippets.
type SavedPage struct {
	Items []engagement.SavedSnippet
	Total int64
}

// Engagement manages likes, saves and notes.
type Engagement struct {
	snippets snippet.SnippetStore
	likes    engagement.LikeStore
	saves    engagement.SaveStore
	notes    engagement.NoteStore
}

// NewEngagement creates a new Engagement service.
func NewEngagement(snippets snippet.SnippetStore, likes engagement.LikeStore, saves engagement.SaveStore, notes engagement.NoteStore) *Engagement {
	return &Engagement{snippets: snippets, likes: likes, saves: saves, notes: notes}
}

// Like records a like. Liking twice leaves the count unchanged.
func (s *Engagement) Like(ctx context.Context, snippetID, userID string) (LikeResult, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return LikeResult{}, fmt.Errorf("allocate like id: %w", err)
	}
	if _, err := s.likes.Like(ctx, engagement.NewMark(id.String(), snippetID, userID)); err != nil {
		return LikeResult{}, err
	}
	return s.likeResult(ctx, snippetID, true)
}

// Unlike removes a like. Unliking a snippet that is not liked changes nothing.
func (s *Engagement) Unlike(ctx context.Context, snippetID, userID string) (LikeResult, error) {
	if _, err := s.snippets.Get(ctx, snippetID); err != nil {
		return LikeResult{}, err
	}
	if _, err := s.likes.Unlike(ctx, snippetID, userID); err != nil {
		return LikeResult{}, err
	}
	return s.likeResult(ctx, snippetID, false)
}

// ToggleLike likes the snippet if the user has not, and unlikes it otherwise.
func (s *Engagement) ToggleLike(ctx context.Context, snippetID, userID string) (LikeResult, error) {
	liked, err := s.likes.Exists(ctx, snippetID, userID)
	if err != nil {
		return LikeResult{}, err
	}
	if liked {
		return s.Unlike(ctx, snippetID, userID)
	}
	return s.Like(ctx, snippetID, userID)
}

func (s *Engagement) likeResult(ctx context.Context, snippetID string, liked bool) (LikeResult, error) {
	sn, err := s.snippets.Get(ctx, snippetID)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Liked: liked, LikesCount: sn.LikesCount()}, nil
}

// Save bookmarks a snippet for the user. It reports whether the snippet is
// saved afterwards, which is always true.
func (s *Engagement) Save(ctx context.Context, snippetID, userID string) (bool, error) {
	if _, err := s.snippets.Get(ctx, snippetID); err != nil {
		return false, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return false, fmt.Errorf("allocate save id: %w", err)
	}
	if _, err := s.saves.Save(ctx, engagement.NewMark(id.String(), snippetID, userID)); err != nil {
		return false, err
	}
	return true, nil
}

// Unsave removes a bookmark. It reports whether the snippet is saved
// afterwards, which is always false.
func (s *Engagement) Unsave(ctx context.Context, snippetID, userID string) (bool, error) {
	if _, err := s.saves.Unsave(ctx, snippetID, userID); err != nil {
		return false, err
	}
	return false, nil
}

// ToggleSave saves the snippet if the user has not, and unsaves it otherwise.
func (s *Engagement) ToggleSave(ctx context.Context, snippetID, userID string) (bool, error) {
	saved, err := s.saves.Exists(ctx, snippetID, userID)
	if err != nil {
		return false, err
	}
	if saved {
		return s.Unsave(ctx, snippetID, userID)
	}
	return s.Save(ctx, snippetID, userID)
}

// SavedSnippets lists the user's saved snippets, newest save first.
func (s *Engagement) SavedSnippets(ctx context.Context, userID string, page Page) (SavedPage, error) {
	page = page.normalized()
	items, err := s.saves.Saved(ctx, userID, repository.WithPage(page.Number, page.Size)...)
	if err != nil {
		return SavedPage{}, err
	}
	total, err := s.saves.Count(ctx, engagement.WithUserID(userID))
	if err != nil {
		return SavedPage{}, err
	}
	return SavedPage{Items: items, Total: total}, nil
}

// UpsertNote writes the user's note on a snippet. An empty text clears it.
func (s *Engagement) UpsertNote(ctx context.Context, snippetID, userID, text string) (engagement.Note, error) {
	if n := utf8.RuneCountInString(text); n > MaxNoteLength {
		return engagement.Note{}, fmt.Errorf("%w: note is %d characters, the limit is %d", ErrValidation, n, MaxNoteLength)
	}
	if _, err := s.snippets.Get(ctx, snippetID); err != nil {
		return engagement.Note{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return engagement.Note{}, fmt.Errorf("allocate note id: %w", err)
	}
	return s.notes.Upsert(ctx, engagement.NewNote(id.String(), snippetID, userID, text))
}

// Note returns the user's note text on a snippet, or "" when there is none.
func (s *Engagement) Note(ctx context.Context, snippetID, userID string) (string, error) {
	n, err := s.notes.Get(ctx, snippetID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return n.Text(), nil
}

// Notes lists the user's non-empty notes, most recently updated first,
// optionally filtered by a case-insensitive substring.
func (s *Engagement) Notes(ctx context.Context, userID, search string, page Page) ([]engagement.NotedSnippet, error) {
	page = page.normalized()
	options := repository.WithPage(page.Number, page.Size)
	if search = strings.TrimSpace(search); search != "" {
		options = append(options, engagement.WithNoteText(search))
	}
	return s.notes.Noted(ctx, userID, options...)
}

// Status returns the user's like, save and note for a snippet.
func (s *Engagement) Status(ctx context.Context, snippetID, userID string) (engagement.Status, error) {
	if _, err := s.snippets.Get(ctx, snippetID); err != nil {
		return engagement.Status{}, err
	}
	liked, err := s.likes.Exists(ctx, snippetID, userID)
	if err != nil {
		return engagement.Status{}, err
	}
	saved, err := s.saves.Exists(ctx, snippetID, userID)
	if err != nil {
		return engagement.Status{}, err
	}
	note, err := s.Note(ctx, snippetID, userID)
	if err != nil {
		return engagement.Status{}, err
	}
	return engagement.Status{Liked: liked, Saved: saved, Note: note}, nil
}
