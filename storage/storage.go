package storage

import (
	"context"
	"time"
)

// TaskStore is the persistence collaborator the recurrence engine reads from
// and writes follow-on occurrences to. Please use the error types provided.
type TaskStore interface {
	// QueryRecurringTasks returns every series anchor (IsRecurring with a rule).
	QueryRecurringTasks(ctx context.Context) ([]Task, error)
	// GetOverridesForWindow returns the per-occurrence overrides of one series
	// whose dates fall within [start, end].
	GetOverridesForWindow(ctx context.Context, parentTaskID string, start, end time.Time) ([]Override, error)
	// CreateTask persists a new task and returns its id. Implementations
	// may reject a second task due the same day in the same series with ErrConflict.
	CreateTask(ctx context.Context, task Task) (string, error)
	// GetTask finds a task by id.
	GetTask(ctx context.Context, id string) (*Task, error)
}

// Subscriber streams task-list snapshots, replacing live query listeners.
type Subscriber interface {
	// Subscribe returns a channel that receives the current task list
	// immediately and after every change, plus a func that ends the
	// subscription and closes the channel. Cancelling ctx also ends it.
	Subscribe(ctx context.Context) (<-chan []Task, func())
}
