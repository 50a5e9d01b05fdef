package task

import "time"

// RunState is a step of a generation run.
type RunState string

// RunState values.
const (
	RunStateReceived                RunState = "received"
	RunStateTopicRefining           RunState = "topic_refining"
	RunStateSourceGathering         RunState = "source_gathering"
	RunStateSynthesizing            RunState = "synthesizing"
	RunStatePersisting              RunState = "persisting"
	RunStateNotifying               RunState = "notifying"
	RunStateRetrying                RunState = "retrying"
	RunStateCompleted               RunState = "completed"
	RunStateNoInformation           RunState = "no_information"
	RunStateInsufficientInformation RunState = "insufficient_information"
	RunStateFailed                  RunState = "failed"
)

// IsTerminal returns true if no further work will happen for the run.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateNoInformation, RunStateInsufficientInformation, RunStateFailed:
		return true
	default:
		return false
	}
}

// Run is the observable status of one generation request. Its request id
// identifies the logical job across every retry.
type Run struct {
	requestID      string
	userExternalID string
	query          string
	topic          string
	state          RunState
	attempts       int
	snippetID      string
	errorMessage   string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewRun creates a run in the received state.
func NewRun(requestID, userExternalID, query string) Run {
	now := time.Now().UTC()
	return Run{
		requestID:      requestID,
		userExternalID: userExternalID,
		query:          query,
		state:          RunStateReceived,
		createdAt:      now,
		updatedAt:      now,
	}
}

// NewRunFull creates a Run with all fields (used by stores).
func NewRunFull(
	requestID, userExternalID, query, topic string,
	state RunState,
	attempts int,
	snippetID, errorMessage string,
	createdAt, updatedAt time.Time,
) Run {
	return Run{
		requestID:      requestID,
		userExternalID: userExternalID,
		query:          query,
		topic:          topic,
		state:          state,
		attempts:       attempts,
		snippetID:      snippetID,
		errorMessage:   errorMessage,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// RequestID returns the generation request id.
func (r Run) RequestID() string { return r.requestID }

// UserExternalID returns the requesting user's identity provider id.
func (r Run) UserExternalID() string { return r.userExternalID }

// Query returns the original search query.
func (r Run) Query() string { return r.query }

// Topic returns the refined topic, once known.
func (r Run) Topic() string { return r.topic }

// State returns the current state.
func (r Run) State() RunState { return r.state }

// Attempts returns how many times the job has started.
func (r Run) Attempts() int { return r.attempts }

// SnippetID returns the created snippet id, if any.
func (r Run) SnippetID() string { return r.snippetID }

// Error returns the internal failure reason, if any.
func (r Run) Error() string { return r.errorMessage }

// CreatedAt returns when the run was requested.
func (r Run) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns when the run last changed.
func (r Run) UpdatedAt() time.Time { return r.updatedAt }

// Start records the beginning of an execution attempt.
func (r Run) Start(attempt int) Run {
	r.attempts = attempt
	r.state = RunStateTopicRefining
	r.errorMessage = ""
	r.updatedAt = time.Now().UTC()
	return r
}

// Advance moves the run to state.
func (r Run) Advance(state RunState) Run {
	r.state = state
	r.updatedAt = time.Now().UTC()
	return r
}

// WithTopic records the refined topic.
func (r Run) WithTopic(topic string) Run {
	r.topic = topic
	r.updatedAt = time.Now().UTC()
	return r
}

// WithSnippet records the created snippet.
func (r Run) WithSnippet(snippetID string) Run {
	r.snippetID = snippetID
	r.updatedAt = time.Now().UTC()
	return r
}

// Retry marks the run as waiting for another attempt after err.
func (r Run) Retry(errorMsg string) Run {
	r.state = RunStateRetrying
	r.errorMessage = errorMsg
	r.updatedAt = time.Now().UTC()
	return r
}

// Fail marks the run as failed.
func (r Run) Fail(errorMsg string) Run {
	r.state = RunStateFailed
	r.errorMessage = errorMsg
	r.updatedAt = time.Now().UTC()
	return r
}
