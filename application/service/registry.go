package service

import (
	"sync"

	"github.com/helixml/snippets/application/handler"
	"github.com/helixml/snippets/domain/task"
)

// Registry manages task handlers for different operations.
type Registry struct {
	handlers map[task.Operation]handler.Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[task.Operation]handler.Handler),
	}
}

// Register registers a handler for an operation.
// Subsequent registrations for the same operation overwrite the previous handler.
func (r *Registry) Register(operation task.Operation, h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = h
}

// Handler returns the handler for an operation.
func (r *Registry) Handler(operation task.Operation) (handler.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[operation]
	return h, ok
}

// HasHandler reports whether a handler is registered for the operation.
func (r *Registry) HasHandler(operation task.Operation) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[operation]
	return ok
}

// Operations returns all registered operations.
func (r *Registry) Operations() []task.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]task.Operation, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	return ops
}
