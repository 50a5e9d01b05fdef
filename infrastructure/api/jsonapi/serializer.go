package jsonapi

import (
	"github.com/helixml/snippets/domain/engagement"
	"github.com/helixml/snippets/domain/notification"
	"github.com/helixml/snippets/domain/snippet"
	"github.com/helixml/snippets/domain/task"
	"github.com/helixml/snippets/domain/user"
)

// Resource type names.
const (
	TypeSnippet        = "snippet"
	TypeSnippetSummary = "snippet_summary"
	TypeRun            = "generation"
	TypeNotification   = "notification"
	TypeUser           = "user"
	TypeNote           = "note"
	TypeSavedSnippet   = "saved_snippet"
	TypeEngagement     = "engagement"
)

// ReferenceAttributes is a web source of a snippet.
type ReferenceAttributes struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SnippetAttributes represents snippet attributes in JSON:API format.
type SnippetAttributes struct {
	Title          string                `json:"title"`
	Content        snippet.Content       `json:"content"`
	Abstract       string                `json:"abstract"`
	Tags           []string              `json:"tags"`
	References     []ReferenceAttributes `json:"references"`
	LikesCount     int                   `json:"likes_count"`
	RequestorName  string                `json:"requestor_name"`
	ModelUsed      string                `json:"model_used,omitempty"`
	TopicGenerated string                `json:"topic_generated,omitempty"`
	CreatedAt      DateTime              `json:"created_at"`
}

// SnippetSummaryAttributes is the projection returned by similarity search.
type SnippetSummaryAttributes struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Tags     []string `json:"tags"`
}

// RunAttributes represents a generation request's status.
type RunAttributes struct {
	Query     string   `json:"search_query"`
	Topic     string   `json:"topic,omitempty"`
	State     string   `json:"state"`
	Terminal  bool     `json:"terminal"`
	Attempts  int      `json:"attempts"`
	SnippetID string   `json:"snippet_id,omitempty"`
	Error     string   `json:"error,omitempty"`
	CreatedAt DateTime `json:"created_at"`
	UpdatedAt DateTime `json:"updated_at"`
}

// NotificationAttributes represents a notification. Payload keeps the stored
// "query|link" form; Query and Link are its parts.
type NotificationAttributes struct {
	Kind      string   `json:"kind"`
	Payload   string   `json:"payload"`
	Query     string   `json:"query"`
	Link      string   `json:"link,omitempty"`
	IsRead    bool     `json:"is_read"`
	CreatedAt DateTime `json:"created_at"`
}

// UserAttributes represents a user profile.
type UserAttributes struct {
	ExternalID   string   `json:"external_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	ImageURL     string   `json:"image_url"`
	PrimaryEmail string   `json:"primary_email"`
	TotalRewards int      `json:"total_rewards"`
	CreatedAt    DateTime `json:"created_at"`
}

// NoteAttributes represents a user's note joined with its snippet title.
type NoteAttributes struct {
	Text         string   `json:"text"`
	SnippetTitle string   `json:"snippet_title"`
	UpdatedAt    DateTime `json:"updated_at"`
}

// SavedSnippetAttributes represents a saved snippet.
type SavedSnippetAttributes struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Tags     []string `json:"tags"`
	SavedAt  DateTime `json:"saved_at"`
}

// EngagementAttributes is one user's engagement with one snippet.
type EngagementAttributes struct {
	Liked      bool   `json:"liked"`
	Saved      bool   `json:"saved"`
	Note       string `json:"note"`
	LikesCount int    `json:"likes_count"`
}

// Serializer converts domain objects to JSON:API resources.
type Serializer struct {
	basePath string
}

// NewSerializer creates a Serializer whose relationship links start with
// basePath, for example "/api/v1".
func NewSerializer(basePath string) *Serializer {
	return &Serializer{basePath: basePath}
}

// SnippetResource converts a snippet to a JSON:API resource.
func (s *Serializer) SnippetResource(sn snippet.Snippet) *Resource {
	refs := sn.References()
	references := make([]ReferenceAttributes, len(refs))
	for i, r := range refs {
		references[i] = ReferenceAttributes{Link: r.Link, Title: r.Title, Description: r.Description}
	}

	attrs := &SnippetAttributes{
		Title:          sn.Title(),
		Content:        sn.Content(),
		Abstract:       sn.Abstract(),
		Tags:           nonNil(sn.Tags()),
		References:     references,
		LikesCount:     sn.LikesCount(),
		RequestorName:  sn.RequestorName(),
		ModelUsed:      sn.ModelUsed(),
		TopicGenerated: sn.TopicGenerated(),
		CreatedAt:      DateTime(sn.CreatedAt()),
	}
	res := NewResource(TypeSnippet, sn.ID(), attrs)
	res.Links = &Links{Self: s.basePath + "/snippets/" + sn.ID()}
	return res
}

// SnippetResources converts multiple snippets to JSON:API resources.
func (s *Serializer) SnippetResources(snippets []snippet.Snippet) []*Resource {
	resources := make([]*Resource, len(snippets))
	for i, sn := range snippets {
		resources[i] = s.SnippetResource(sn)
	}
	return resources
}

// SummaryResources converts similarity results to JSON:API resources.
func (s *Serializer) SummaryResources(summaries []snippet.Summary) []*Resource {
	resources := make([]*Resource, len(summaries))
	for i, sum := range summaries {
		resources[i] = NewResource(TypeSnippetSummary, sum.ID, &SnippetSummaryAttributes{
			Title:    sum.Title,
			Abstract: sum.Abstract,
			Tags:     nonNil(sum.Tags),
		})
		resources[i].Links = &Links{Self: s.basePath + "/snippets/" + sum.ID}
	}
	return resources
}

// RunResource converts a generation run to a JSON:API resource.
func (s *Serializer) RunResource(r task.Run) *Resource {
	attrs := &RunAttributes{
		Query:     r.Query(),
		Topic:     r.Topic(),
		State:     string(r.State()),
		Terminal:  r.State().IsTerminal(),
		Attempts:  r.Attempts(),
		SnippetID: r.SnippetID(),
		Error:     r.Error(),
		CreatedAt: DateTime(r.CreatedAt()),
		UpdatedAt: DateTime(r.UpdatedAt()),
	}
	res := NewResource(TypeRun, r.RequestID(), attrs)
	res.Links = &Links{Self: s.basePath + "/generations/" + r.RequestID()}
	if r.SnippetID() != "" {
		res.WithRelationship("snippet", TypeSnippet, r.SnippetID(), s.basePath+"/snippets/"+r.SnippetID())
	}
	return res
}

// NotificationResources converts notifications to JSON:API resources.
func (s *Serializer) NotificationResources(notifications []notification.Notification) []*Resource {
	resources := make([]*Resource, len(notifications))
	for i, n := range notifications {
		resources[i] = NewResource(TypeNotification, n.ID(), &NotificationAttributes{
			Kind:      string(n.Kind()),
			Payload:   n.Payload(),
			Query:     n.Query(),
			Link:      n.Link(),
			IsRead:    n.IsRead(),
			CreatedAt: DateTime(n.CreatedAt()),
		})
	}
	return resources
}

// UserResource converts a user to a JSON:API resource.
func (s *Serializer) UserResource(u user.User) *Resource {
	return NewResource(TypeUser, u.ID(), &UserAttributes{
		ExternalID:   u.ExternalID(),
		FirstName:    u.FirstName(),
		LastName:     u.LastName(),
		ImageURL:     u.ImageURL(),
		PrimaryEmail: u.PrimaryEmail(),
		TotalRewards: u.TotalRewards(),
		CreatedAt:    DateTime(u.CreatedAt()),
	})
}

// NoteResources converts noted snippets to JSON:API resources.
func (s *Serializer) NoteResources(notes []engagement.NotedSnippet) []*Resource {
	resources := make([]*Resource, len(notes))
	for i, n := range notes {
		resources[i] = NewResource(TypeNote, n.Note.ID(), &NoteAttributes{
			Text:         n.Note.Text(),
			SnippetTitle: n.Snippet.Title(),
			UpdatedAt:    DateTime(n.Note.UpdatedAt()),
		}).WithRelationship("snippet", TypeSnippet, n.Snippet.ID(), s.basePath+"/snippets/"+n.Snippet.ID())
	}
	return resources
}

// SavedResources converts saved snippets to JSON:API resources.
func (s *Serializer) SavedResources(saved []engagement.SavedSnippet) []*Resource {
	resources := make([]*Resource, len(saved))
	for i, sv := range saved {
		sum := sv.Snippet.Summary()
		resources[i] = NewResource(TypeSavedSnippet, sv.Snippet.ID(), &SavedSnippetAttributes{
			Title:    sum.Title,
			Abstract: sum.Abstract,
			Tags:     nonNil(sum.Tags),
			SavedAt:  DateTime(sv.SavedAt),
		})
		resources[i].Links = &Links{Self: s.basePath + "/snippets/" + sv.Snippet.ID()}
	}
	return resources
}

// EngagementResource converts an engagement status to a JSON:API resource
// identified by the snippet id.
func (s *Serializer) EngagementResource(snippetID string, status engagement.Status, likesCount int) *Resource {
	return NewResource(TypeEngagement, snippetID, &EngagementAttributes{
		Liked:      status.Liked,
		Saved:      status.Saved,
		Note:       status.Note,
		LikesCount: likesCount,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
