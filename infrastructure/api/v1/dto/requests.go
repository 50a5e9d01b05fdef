// Package dto holds the request bodies accepted by the v1 API.
package dto

// GenerationAttributes is the payload of a generation request.
type GenerationAttributes struct {
	SearchQuery string `json:"search_query"`
}

// GenerationData wraps GenerationAttributes in JSON:API form.
type GenerationData struct {
	Type       string               `json:"type"`
	Attributes GenerationAttributes `json:"attributes"`
}

// GenerationRequest asks for a new snippet.
type GenerationRequest struct {
	Data GenerationData `json:"data"`
}

// NoteAttributes is the payload of a note update.
type NoteAttributes struct {
	Text string `json:"text"`
}

// NoteData wraps NoteAttributes in JSON:API form.
type NoteData struct {
	Type       string         `json:"type"`
	Attributes NoteAttributes `json:"attributes"`
}

// NoteRequest replaces the caller's note on a snippet.
type NoteRequest struct {
	Data NoteData `json:"data"`
}
