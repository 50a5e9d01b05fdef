package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/helixml/snippets/domain/engagement"
	"github.com/helixml/snippets/domain/repository"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeStore implements engagement.LikeStore using GORM. The like row and the
// snippet counter change in the same transaction.
type LikeStore struct {
	repo database.Repository[engagement.Mark, LikeModel]
}

// NewLikeStore creates a new LikeStore.
func NewLikeStore(db database.Database) LikeStore {
	return LikeStore{
		repo: database.NewRepository[engagement.Mark, LikeModel](db, LikeMapper{}, "like"),
	}
}

// Like records a like and increments the snippet's like count.
func (s LikeStore) Like(ctx context.Context, mark engagement.Mark) (bool, error) {
	model := s.repo.Mapper().ToModel(mark)

	return database.WithTransactionResult(ctx, s.repo.Database(), func(tx *gorm.DB) (bool, error) {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if result.Error != nil {
			return false, fmt.Errorf("insert like: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return false, nil
		}
		if err := adjustLikes(tx, mark.SnippetID(), gorm.Expr("likes_count + 1")); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Unlike removes a like and decrements the count, never below zero.
func (s LikeStore) Unlike(ctx context.Context, snippetID, userID string) (bool, error) {
	return database.WithTransactionResult(ctx, s.repo.Database(), func(tx *gorm.DB) (bool, error) {
		result := tx.Where("snippet_id = ? AND user_id = ?", snippetID, userID).Delete(&LikeModel{})
		if result.Error != nil {
			return false, fmt.Errorf("delete like: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return false, nil
		}
		decrement := gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")
		if err := adjustLikes(tx, snippetID, decrement); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Exists reports whether the user likes the snippet.
func (s LikeStore) Exists(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.repo.Exists(ctx, engagement.WithSnippetID(snippetID), engagement.WithUserID(userID))
}

func adjustLikes(tx *gorm.DB, snippetID string, expr clause.Expr) error {
	result := tx.Model(&SnippetModel{}).Where("id = ?", snippetID).Update("likes_count", expr)
	if result.Error != nil {
		return fmt.Errorf("update likes count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: snippet %s", database.ErrNotFound, snippetID)
	}
	return nil
}

// SaveStore implements engagement.SaveStore using GORM.
type SaveStore struct {
	repo     database.Repository[engagement.Mark, SaveModel]
	snippets database.Repository[snippet.Snippet, SnippetModel]
}

// NewSaveStore creates a new SaveStore.
func NewSaveStore(db database.Database) SaveStore {
	return SaveStore{
		repo:     database.NewRepository[engagement.Mark, SaveModel](db, SaveMapper{}, "save"),
		snippets: database.NewRepository[snippet.Snippet, SnippetModel](db, SnippetMapper{}, "snippet"),
	}
}

// Save records a save; saving twice returns false.
func (s SaveStore) Save(ctx context.Context, mark engagement.Mark) (bool, error) {
	model := s.repo.Mapper().ToModel(mark)
	result := s.repo.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if result.Error != nil {
		return false, fmt.Errorf("insert save: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Unsave removes a save; returns false if there was none.
func (s SaveStore) Unsave(ctx context.Context, snippetID, userID string) (bool, error) {
	result := s.repo.DB(ctx).Where("snippet_id = ? AND user_id = ?", snippetID, userID).Delete(&SaveModel{})
	if result.Error != nil {
		return false, fmt.Errorf("delete save: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Exists reports whether the user saved the snippet.
func (s SaveStore) Exists(ctx context.Context, snippetID, userID string) (bool, error) {
	return s.repo.Exists(ctx, engagement.WithSnippetID(snippetID), engagement.WithUserID(userID))
}

// Count returns the number of saves matching the options.
func (s SaveStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.repo.Count(ctx, options...)
}

// Saved lists the user's saves of existing snippets, newest save first.
func (s SaveStore) Saved(ctx context.Context, userID string, options ...repository.Option) ([]engagement.SavedSnippet, error) {
	var models []SaveModel
	db := s.repo.DB(ctx).
		Where("user_id = ?", userID).
		Where("snippet_id IN (?)", s.repo.DB(ctx).Model(&SnippetModel{}).Select("id")).
		Order("created_at DESC")
	if err := database.ApplyOptions(db, options...).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find saves: %w", err)
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.SnippetID
	}
	byID, err := snippetsByID(ctx, s.snippets, ids)
	if err != nil {
		return nil, err
	}

	saved := make([]engagement.SavedSnippet, 0, len(models))
	for _, m := range models {
		sn, ok := byID[m.SnippetID]
		if !ok {
			continue
		}
		saved = append(saved, engagement.SavedSnippet{Snippet: sn, SavedAt: m.CreatedAt})
	}
	return saved, nil
}

// NoteStore implements engagement.NoteStore using GORM.
type NoteStore struct {
	repo     database.Repository[engagement.Note, NoteModel]
	snippets database.Repository[snippet.Snippet, SnippetModel]
}

// NewNoteStore creates a new NoteStore.
func NewNoteStore(db database.Database) NoteStore {
	return NoteStore{
		repo:     database.NewRepository[engagement.Note, NoteModel](db, NoteMapper{}, "note"),
		snippets: database.NewRepository[snippet.Snippet, SnippetModel](db, SnippetMapper{}, "snippet"),
	}
}

// Upsert writes the note for (snippet, user). An existing note keeps its id
// and creation time.
func (s NoteStore) Upsert(ctx context.Context, note engagement.Note) (engagement.Note, error) {
	model := s.repo.Mapper().ToModel(note)
	model.UpdatedAt = time.Now().UTC()

	err := s.repo.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snippet_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return engagement.Note{}, fmt.Errorf("upsert note: %w", err)
	}

	return s.Get(ctx, note.SnippetID(), note.UserID())
}

// Get retrieves the note for (snippet, user).
func (s NoteStore) Get(ctx context.Context, snippetID, userID string) (engagement.Note, error) {
	return s.repo.FindOne(ctx, engagement.WithSnippetID(snippetID), engagement.WithUserID(userID))
}

// Noted lists the user's non-empty notes on existing snippets, most recently
// updated first.
func (s NoteStore) Noted(ctx context.Context, userID string, options ...repository.Option) ([]engagement.NotedSnippet, error) {
	var models []NoteModel
	db := s.repo.DB(ctx).
		Where("user_id = ?", userID).
		Where("TRIM(note) <> ''").
		Where("snippet_id IN (?)", s.repo.DB(ctx).Model(&SnippetModel{}).Select("id")).
		Order("updated_at DESC")
	if err := database.ApplyOptions(db, options...).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.SnippetID
	}
	byID, err := snippetsByID(ctx, s.snippets, ids)
	if err != nil {
		return nil, err
	}

	noted := make([]engagement.NotedSnippet, 0, len(models))
	for _, m := range models {
		sn, ok := byID[m.SnippetID]
		if !ok {
			continue
		}
		noted = append(noted, engagement.NotedSnippet{Snippet: sn, Note: s.repo.Mapper().ToDomain(m)})
	}
	return noted, nil
}

func snippetsByID(ctx context.Context, repo database.Repository[snippet.Snippet, SnippetModel], ids []string) (map[string]snippet.Snippet, error) {
	byID := make(map[string]snippet.Snippet, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	found, err := repo.Find(ctx, repository.WithIDIn(ids))
	if err != nil {
		return nil, err
	}
	for _, sn := range found {
		byID[sn.ID()] = sn
	}
	return byID, nil
}

var (
	_ engagement.LikeStore = LikeStore{}
	_ engagement.SaveStore = SaveStore{}
	_ engagement.NoteStore = NoteStore{}
)
