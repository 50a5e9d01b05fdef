// Package jsonapi provides JSON:API document types for API responses.
package jsonapi

import (
	"encoding/json"
	"time"
)

// Document represents a JSON:API top-level document.
// See: https://jsonapi.org/format/#document-structure
type Document struct {
	Data     any     `json:"data"`
	Meta     *Meta   `json:"meta,omitempty"`
	Links    *Links  `json:"links,omitempty"`
	Included []any   `json:"included,omitempty"`
	Errors   []Error `json:"errors,omitempty"`
}

// Meta holds non-standard meta-information about a document.
type Meta map[string]any

// Links holds links associated with a document or resource.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Resource represents a JSON:API resource object.
type Resource struct {
	Type          string        `json:"type"`
	ID            string        `json:"id"`
	Attributes    any           `json:"attributes"`
	Relationships Relationships `json:"relationships,omitempty"`
	Links         *Links        `json:"links,omitempty"`
}

// Relationships maps relationship names to their data.
type Relationships map[string]*Relationship

// Relationship represents a JSON:API relationship.
type Relationship struct {
	Links *Links `json:"links,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ResourceIdentifier identifies a resource without full attributes.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Error represents a JSON:API error object.
type Error struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NewResource creates a new resource with the given type, id and attributes.
func NewResource(resourceType, id string, attrs any) *Resource {
	return &Resource{
		Type:       resourceType,
		ID:         id,
		Attributes: attrs,
	}
}

// WithRelationship adds a to-one relationship and returns the resource.
func (r *Resource) WithRelationship(name, resourceType, id, related string) *Resource {
	if r.Relationships == nil {
		r.Relationships = Relationships{}
	}
	rel := &Relationship{Data: ResourceIdentifier{Type: resourceType, ID: id}}
	if related != "" {
		rel.Links = &Links{Self: related}
	}
	r.Relationships[name] = rel
	return r
}

// NewSingleResponse creates a JSON:API document with a single resource.
func NewSingleResponse(resource *Resource) *Document {
	return &Document{Data: resource}
}

// NewListResponse creates a JSON:API document with a list of resources.
// A nil list is written as an empty array.
func NewListResponse(resources []*Resource) *Document {
	if resources == nil {
		resources = []*Resource{}
	}
	return &Document{Data: resources}
}

// WithMeta sets the document meta and returns the document.
func (d *Document) WithMeta(meta *Meta) *Document {
	d.Meta = meta
	return d
}

// WithLinks sets the document links and returns the document.
func (d *Document) WithLinks(links *Links) *Document {
	d.Links = links
	return d
}

// NewError creates a simple error with status, title and detail.
func NewError(status, title, detail string) Error {
	return Error{
		Status: status,
		Title:  title,
		Detail: detail,
	}
}

// DateTime handles JSON serialization of time.Time to RFC 3339.
type DateTime time.Time

// MarshalJSON serializes the DateTime; the zero time becomes null.
func (dt DateTime) MarshalJSON() ([]byte, error) {
	t := time.Time(dt)
	if t.IsZero() {
		return json.Marshal(nil)
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// UnmarshalJSON parses RFC 3339 or null.
func (dt *DateTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*dt = DateTime{}
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return err
	}
	*dt = DateTime(t)
	return nil
}

// Time returns the underlying time.Time.
func (dt DateTime) Time() time.Time {
	return time.Time(dt)
}
