package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationGenerateSnippet Operation = "snippets.generation.generate_snippet"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsGenerationOperation returns true for snippet generation operations.
func (o Operation) IsGenerationOperation() bool {
	return strings.HasPrefix(string(o), "snippets.generation.")
}
