// Package handler provides task handlers for processing queued operations.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoHandler indicates no handler is registered for the operation.
var ErrNoHandler = errors.New("no handler registered")

// ErrPermanent marks a task failure that no retry can fix, such as a malformed
// payload or a requester that no longer exists. The worker neither retries it
// nor calls the failure hook.
var ErrPermanent = errors.New("permanent task failure")

// Handler defines the interface for task operation handlers.
type Handler interface {
	Execute(ctx context.Context, payload map[string]any) error
}

// FailureHandler is implemented by handlers that must react once a task has
// used up all of its attempts.
type FailureHandler interface {
	OnFailure(ctx context.Context, payload map[string]any, cause error) error
}

type attemptKey struct{}

// WithAttempt stores the 1-based execution attempt of the current task.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// AttemptFrom returns the attempt stored by WithAttempt, or 1.
func AttemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok && n > 0 {
		return n
	}
	return 1
}

// ExtractInt64 extracts an int64 value from the payload.
func ExtractInt64(payload map[string]any, key string) (int64, error) {
	val, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("missing required field: %s", key)
	}

	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("invalid type for %s: %T", key, val)
	}
}

// ExtractString extracts a string value from the payload.
func ExtractString(payload map[string]any, key string) (string, error) {
	val, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("missing required field: %s", key)
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for %s: expected string, got %T", key, val)
	}

	return s, nil
}

// GeneratePayload holds the fields of a snippet generation task.
type GeneratePayload struct {
	requestID      string
	searchQuery    string
	userExternalID string
}

// NewGeneratePayload creates the payload map for a generation task.
func NewGeneratePayload(requestID, searchQuery, userExternalID string) map[string]any {
	return map[string]any{
		"request_id":       requestID,
		"search_query":     searchQuery,
		"user_external_id": userExternalID,
	}
}

// RequestID returns the generation request id.
func (p GeneratePayload) RequestID() string { return p.requestID }

// SearchQuery returns the trimmed user query.
func (p GeneratePayload) SearchQuery() string { return p.searchQuery }

// UserExternalID returns the requester's identity provider id.
func (p GeneratePayload) UserExternalID() string { return p.userExternalID }

// ExtractGeneratePayload extracts the generation fields from a task payload.
// The query is trimmed but not length checked.
func ExtractGeneratePayload(payload map[string]any) (GeneratePayload, error) {
	requestID, err := ExtractString(payload, "request_id")
	if err != nil {
		return GeneratePayload{}, err
	}
	query, err := ExtractString(payload, "search_query")
	if err != nil {
		return GeneratePayload{}, err
	}
	userID, err := ExtractString(payload, "user_external_id")
	if err != nil {
		return GeneratePayload{}, err
	}
	return GeneratePayload{
		requestID:      strings.TrimSpace(requestID),
		searchQuery:    strings.TrimSpace(query),
		userExternalID: strings.TrimSpace(userID),
	}, nil
}
