package persistence

import (
	"time"

	"github.com/helixml/snippets/domain/snippet"
	"gorm.io/datatypes"
)

// UserModel represents a mirrored identity provider user.
type UserModel struct {
	ID           string    `gorm:"column:id;type:varchar(64);primaryKey"`
	ExternalID   string    `gorm:"column:external_id;type:varchar(255);uniqueIndex;not null"`
	FirstName    string    `gorm:"column:first_name;type:varchar(255);default:''"`
	LastName     string    `gorm:"column:last_name;type:varchar(255);default:''"`
	ImageURL     string    `gorm:"column:image_url;type:text;default:''"`
	PrimaryEmail string    `gorm:"column:primary_email;type:varchar(255);default:''"`
	TotalRewards int       `gorm:"column:total_rewards;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name.
func (UserModel) TableName() string { return "users" }

// SnippetModel represents a generated snippet.
type SnippetModel struct {
	ID                  string                                 `gorm:"column:id;type:varchar(64);primaryKey"`
	RequestID           *string                                `gorm:"column:request_id;type:varchar(64);uniqueIndex"`
	Title               string                                 `gorm:"column:title;type:varchar(255);not null"`
	Content             datatypes.JSONType[snippet.Content]    `gorm:"column:content;not null"`
	Abstract            string                                 `gorm:"column:abstract;type:text;default:''"`
	Tags                datatypes.JSONSlice[string]            `gorm:"column:tags"`
	References          datatypes.JSONSlice[snippet.Reference] `gorm:"column:sources"`
	LikesCount          int                                    `gorm:"column:likes_count;not null;default:0;index"`
	RequestedBy         string                                 `gorm:"column:requested_by;type:varchar(64);index;default:''"`
	RequestorName       string                                 `gorm:"column:requestor_name;type:varchar(255);default:''"`
	AbstractEmbeddingID string                                 `gorm:"column:abstract_embedding_id;type:varchar(64);default:''"`
	ModelUsed           string                                 `gorm:"column:model_used;type:varchar(255);default:''"`
	TopicGenerated      string                                 `gorm:"column:topic_generated;type:text;default:''"`
	CreatedAt           time.Time                              `gorm:"column:created_at;not null;index"`
}

// TableName returns the table name.
func (SnippetModel) TableName() string { return "snippets" }

// EmbeddingModel is an abstract embedding stored as a JSON array. Used on
// SQLite; PostgreSQL uses a native vector column instead.
type EmbeddingModel struct {
	ID        string                       `gorm:"column:id;type:varchar(64);primaryKey"`
	SnippetID string                       `gorm:"column:snippet_id;type:varchar(64);uniqueIndex;not null"`
	Text      string                       `gorm:"column:text;type:text;not null"`
	Vector    datatypes.JSONSlice[float64] `gorm:"column:vector;not null"`
	CreatedAt time.Time                    `gorm:"column:created_at;not null"`
}

// TableName returns the table name.
func (EmbeddingModel) TableName() string { return embeddingTable }

// LikeModel records that a user likes a snippet.
type LikeModel struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey"`
	SnippetID string    `gorm:"column:snippet_id;type:varchar(64);not null;uniqueIndex:idx_snippet_likes_pair"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_snippet_likes_pair;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName returns the table name.
func (LikeModel) TableName() string { return "snippet_likes" }

// SaveModel records that a user saved a snippet.
type SaveModel struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey"`
	SnippetID string    `gorm:"column:snippet_id;type:varchar(64);not null;uniqueIndex:idx_snippet_saves_pair"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_snippet_saves_pair;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName returns the table name.
func (SaveModel) TableName() string { return "snippet_saves" }

// NoteModel is one user's free-text note on a snippet.
type NoteModel struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey"`
	SnippetID string    `gorm:"column:snippet_id;type:varchar(64);not null;uniqueIndex:idx_snippet_notes_pair"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_snippet_notes_pair;index"`
	Note      string    `gorm:"column:note;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name.
func (NoteModel) TableName() string { return "snippet_notes" }

// NotificationModel is a message to a user. The idempotency key is unique
// when set.
type NotificationModel struct {
	ID             string    `gorm:"column:id;type:varchar(64);primaryKey"`
	ReceiverID     string    `gorm:"column:receiver_id;type:varchar(64);not null;index"`
	CreatorID      string    `gorm:"column:creator_id;type:varchar(64);default:''"`
	Kind           string    `gorm:"column:kind;type:varchar(32);not null"`
	Payload        string    `gorm:"column:payload;type:text;not null"`
	IdempotencyKey *string   `gorm:"column:idempotency_key;type:varchar(255);uniqueIndex"`
	IsRead         bool      `gorm:"column:is_read;not null;default:false"`
	IsCleared      bool      `gorm:"column:is_cleared;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

// TableName returns the table name.
func (NotificationModel) TableName() string { return "notifications" }

// TaskModel represents a queued task. A task with a lease in the future is
// being worked on and is not handed out again until the lease expires.
type TaskModel struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey    string            `gorm:"column:dedup_key;type:varchar(255);uniqueIndex;not null"`
	Type        string            `gorm:"column:type;type:varchar(255);index;not null"`
	Payload     datatypes.JSONMap `gorm:"column:payload"`
	Priority    int               `gorm:"column:priority;not null"`
	Attempts    int               `gorm:"column:attempts;not null;default:0"`
	LeasedUntil *time.Time        `gorm:"column:leased_until;index"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (TaskModel) TableName() string { return "tasks" }

// RunModel is the status of one generation request.
type RunModel struct {
	RequestID      string    `gorm:"column:request_id;type:varchar(64);primaryKey"`
	UserExternalID string    `gorm:"column:user_external_id;type:varchar(255);index;not null"`
	Query          string    `gorm:"column:query;type:varchar(255);not null"`
	Topic          string    `gorm:"column:topic;type:text;default:''"`
	State          string    `gorm:"column:state;type:varchar(32);not null"`
	Attempts       int       `gorm:"column:attempts;not null;default:0"`
	SnippetID      string    `gorm:"column:snippet_id;type:varchar(64);default:''"`
	Error          string    `gorm:"column:error;type:text;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name.
func (RunModel) TableName() string { return "generation_runs" }
