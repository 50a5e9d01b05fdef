package tracking

import (
	"context"

	"github.com/helixml/snippets/domain/task"
)

// Reporter defines the interface for progress reporting modules.
// Implementations receive notifications when a generation run changes.
type Reporter interface {
	// OnChange is called when a run changes state.
	OnChange(ctx context.Context, run task.Run) error
}
