package snippets

import (
	"errors"

	"github.com/helixml/snippets/application/service"
)

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("snippets: no database configured")

	// ErrNoProvider indicates the chat, embedding or search service is missing.
	ErrNoProvider = errors.New("snippets: generation providers not configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed
)
