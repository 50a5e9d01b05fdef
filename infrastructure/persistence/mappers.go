package persistence

import (
	"time"

	"github.com/helixml/snippets/domain/engagement"
	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/domain/user"
	"gorm.io/datatypes"
)

// UserMapper maps between domain User and persistence UserModel.
type UserMapper struct{}

// ToDomain converts a UserModel to a domain User.
func (m UserMapper) ToDomain(e UserModel) user.User {
	return user.NewUserFull(
		e.ID,
		user.Profile{
			ExternalID:   e.ExternalID,
			FirstName:    e.FirstName,
			LastName:     e.LastName,
			ImageURL:     e.ImageURL,
			PrimaryEmail: e.PrimaryEmail,
		},
		e.TotalRewards,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain User to a UserModel.
func (m UserMapper) ToModel(u user.User) UserModel {
	return UserModel{
		ID:           u.ID(),
		ExternalID:   u.ExternalID(),
		FirstName:    u.FirstName(),
		LastName:     u.LastName(),
		ImageURL:     u.ImageURL(),
		PrimaryEmail: u.PrimaryEmail(),
		TotalRewards: u.TotalRewards(),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
}

// SnippetMapper maps between domain Snippet and persistence SnippetModel.
type SnippetMapper struct{}

// ToDomain converts a SnippetModel to a domain Snippet.
func (m SnippetMapper) ToDomain(e SnippetModel) snippet.Snippet {
	requestID := ""
	if e.RequestID != nil {
		requestID = *e.RequestID
	}
	return snippet.NewSnippet(e.ID, e.Title, e.Content.Data()).
		WithAbstract(e.Abstract).
		WithTags(e.Tags).
		WithReferences(e.References).
		WithRequest(requestID, e.RequestedBy, e.RequestorName).
		WithAbstractEmbeddingID(e.AbstractEmbeddingID).
		WithGeneration(e.ModelUsed, e.TopicGenerated).
		WithLikesCount(e.LikesCount).
		WithCreatedAt(e.CreatedAt)
}

// ToModel converts a domain Snippet to a SnippetModel.
func (m SnippetMapper) ToModel(s snippet.Snippet) SnippetModel {
	var requestID *string
	if id := s.RequestID(); id != "" {
		requestID = &id
	}
	return SnippetModel{
		ID:                  s.ID(),
		RequestID:           requestID,
		Title:               s.Title(),
		Content:             datatypes.NewJSONType(s.Content()),
		Abstract:            s.Abstract(),
		Tags:                datatypes.NewJSONSlice(s.Tags()),
		References:          datatypes.NewJSONSlice(s.References()),
		LikesCount:          s.LikesCount(),
		RequestedBy:         s.RequestedBy(),
		RequestorName:       s.RequestorName(),
		AbstractEmbeddingID: s.AbstractEmbeddingID(),
		ModelUsed:           s.ModelUsed(),
		TopicGenerated:      s.TopicGenerated(),
		CreatedAt:           s.CreatedAt(),
	}
}

// EmbeddingMapper maps between domain Embedding and persistence EmbeddingModel.
type EmbeddingMapper struct{}

// ToDomain converts an EmbeddingModel to a domain Embedding.
func (m EmbeddingMapper) ToDomain(e EmbeddingModel) snippet.Embedding {
	return snippet.NewEmbedding(e.ID, e.SnippetID, e.Text, e.Vector).WithCreatedAt(e.CreatedAt)
}

// ToModel converts a domain Embedding to an EmbeddingModel.
func (m EmbeddingMapper) ToModel(e snippet.Embedding) EmbeddingModel {
	return EmbeddingModel{
		ID:        e.ID(),
		SnippetID: e.SnippetID(),
		Text:      e.Text(),
		Vector:    datatypes.NewJSONSlice(e.Vector()),
		CreatedAt: orNow(e.CreatedAt()),
	}
}

// LikeMapper maps between domain Mark and persistence LikeModel.
type LikeMapper struct{}

// ToDomain converts a LikeModel to a domain Mark.
func (m LikeMapper) ToDomain(e LikeModel) engagement.Mark {
	return engagement.NewMarkFull(e.ID, e.SnippetID, e.UserID, e.CreatedAt)
}

// ToModel converts a domain Mark to a LikeModel.
func (m LikeMapper) ToModel(mark engagement.Mark) LikeModel {
	return LikeModel{
		ID:        mark.ID(),
		SnippetID: mark.SnippetID(),
		UserID:    mark.UserID(),
		CreatedAt: orNow(mark.CreatedAt()),
	}
}

// SaveMapper maps between domain Mark and persistence SaveModel.
type SaveMapper struct{}

// ToDomain converts a SaveModel to a domain Mark.
func (m SaveMapper) ToDomain(e SaveModel) engagement.Mark {
	return engagement.NewMarkFull(e.ID, e.SnippetID, e.UserID, e.CreatedAt)
}

// ToModel converts a domain Mark to a SaveModel.
func (m SaveMapper) ToModel(mark engagement.Mark) SaveModel {
	return SaveModel{
		ID:        mark.ID(),
		SnippetID: mark.SnippetID(),
		UserID:    mark.UserID(),
		CreatedAt: orNow(mark.CreatedAt()),
	}
}

// NoteMapper maps between domain Note and persistence NoteModel.
type NoteMapper struct{}

// ToDomain converts a NoteModel to a domain Note.
func (m NoteMapper) ToDomain(e NoteModel) engagement.Note {
	return engagement.NewNoteFull(e.ID, e.SnippetID, e.UserID, e.Note, e.CreatedAt, e.UpdatedAt)
}

// ToModel converts a domain Note to a NoteModel.
func (m NoteMapper) ToModel(n engagement.Note) NoteModel {
	return NoteModel{
		ID:        n.ID(),
		SnippetID: n.SnippetID(),
		UserID:    n.UserID(),
		Note:      n.Text(),
		CreatedAt: orNow(n.CreatedAt()),
		UpdatedAt: orNow(n.UpdatedAt()),
	}
}

// NotificationMapper maps between domain Notification and persistence NotificationModel.
type NotificationMapper struct{}

// ToDomain converts a NotificationModel to a domain Notification.
func (m NotificationMapper) ToDomain(e NotificationModel) notification.Notification {
	key := ""
	if e.IdempotencyKey != nil {
		key = *e.IdempotencyKey
	}
	return notification.NewNotificationFull(
		e.ID,
		e.ReceiverID,
		e.CreatorID,
		notification.Kind(e.Kind),
		e.Payload,
		key,
		e.IsRead,
		e.IsCleared,
		e.CreatedAt,
	)
}

// ToModel converts a domain Notification to a NotificationModel.
func (m NotificationMapper) ToModel(n notification.Notification) NotificationModel {
	var key *string
	if k := n.IdempotencyKey(); k != "" {
		key = &k
	}
	return NotificationModel{
		ID:             n.ID(),
		ReceiverID:     n.ReceiverID(),
		CreatorID:      n.CreatorID(),
		Kind:           string(n.Kind()),
		Payload:        n.Payload(),
		IdempotencyKey: key,
		IsRead:         n.IsRead(),
		IsCleared:      n.IsCleared(),
		CreatedAt:      orNow(n.CreatedAt()),
	}
}

// TaskMapper maps between domain Task and persistence TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (m TaskMapper) ToDomain(e TaskModel) task.Task {
	return task.NewTaskWithID(
		e.ID,
		e.DedupKey,
		task.Operation(e.Type),
		e.Priority,
		e.Payload,
		e.Attempts,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Task to a TaskModel.
func (m TaskMapper) ToModel(t task.Task) TaskModel {
	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Type:      t.Operation().String(),
		Payload:   datatypes.JSONMap(t.Payload()),
		Priority:  t.Priority(),
		Attempts:  t.Attempts(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

// RunMapper maps between domain Run and persistence RunModel.
type RunMapper struct{}

// ToDomain converts a RunModel to a domain Run.
func (m RunMapper) ToDomain(e RunModel) task.Run {
	return task.NewRunFull(
		e.RequestID,
		e.UserExternalID,
		e.Query,
		e.Topic,
		task.RunState(e.State),
		e.Attempts,
		e.SnippetID,
		e.Error,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Run to a RunModel.
func (m RunMapper) ToModel(r task.Run) RunModel {
	return RunModel{
		RequestID:      r.RequestID(),
		UserExternalID: r.UserExternalID(),
		Query:          r.Query(),
		Topic:          r.Topic(),
		State:          string(r.State()),
		Attempts:       r.Attempts(),
		SnippetID:      r.SnippetID(),
		Error:          r.Error(),
		CreatedAt:      orNow(r.CreatedAt()),
		UpdatedAt:      orNow(r.UpdatedAt()),
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
