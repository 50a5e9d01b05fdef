package service

import "errors"

var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("snippets: client is closed")

	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the caller may not access the resource.
	ErrForbidden = errors.New("forbidden")
)

// Default and maximum page sizes for listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

// normalized clamps the page to valid bounds.
func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}
