// Package notify delivers task status-change notifications. A Dispatcher
// accepts changes without blocking the caller and hands them to a Sink on
// background workers; a Deduper can sit in front of any Sink.
package notify

import (
	"context"
	"fmt"

	"github.com/originals/task-api/internal/core/domain"
)

// Sink delivers a single status change to its destination.
type Sink interface {
	Send(ctx context.Context, change domain.StatusChange) error
}

// Message renders the human-readable notification text.
func Message(change domain.StatusChange) string {
	return fmt.Sprintf("Task %d status changed to %s", change.TaskID, change.Status)
}
