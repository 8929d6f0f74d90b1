package series

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/taskrecur/storage"
)

// Advancer creates the next persisted occurrence when one is completed
type Advancer struct {
	store  storage.TaskStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Advancer
type Option func(*Advancer)

// WithLogger sets the logger for the advancer
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advancer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock replaces time.Now when checking the rule's end date
func WithClock(now func() time.Time) Option {
	return func(a *Advancer) {
		a.now = now
	}
}

// NewAdvancer creates an advancer persisting through store
func NewAdvancer(store storage.TaskStore, opts ...Option) *Advancer {
	a := &Advancer{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AdvanceSeries persists the occurrence following completed and returns it
// with its stored id. It returns None when the series has ended or the task
// is not recurring. A follow-on resolves its rule from the series anchor.
// Store failures are wrapped in ErrAdvanceFailed and nothing is retried.
func (a *Advancer) AdvanceSeries(ctx context.Context, completed storage.Task) (mo.Option[storage.Task], error) {
	if completed.Status != storage.StatusCompleted {
		return mo.None[storage.Task](), fmt.Errorf("%w: %s is %s", ErrNotCompleted, completed.ID, completed.Status)
	}

	anchor, err := a.resolveAnchor(ctx, completed)
	if err != nil {
		return mo.None[storage.Task](), err
	}
	if !anchor.IsSeriesAnchor() {
		return mo.None[storage.Task](), nil
	}

	next, err := Next(completed, anchor, a.now())
	if err != nil {
		return mo.None[storage.Task](), err
	}
	task, ok := next.Get()
	if !ok {
		a.logger.Info("series ended", "series", anchor.ID, "completed", completed.ID, "rule", anchor.Recurrence.String())
		return next, nil
	}

	id, err := a.store.CreateTask(ctx, task)
	if err != nil {
		a.logger.Error("failed to persist next occurrence",
			"series", anchor.ID,
			"due", task.DueDate,
			"error", err)
		return mo.None[storage.Task](), fmt.Errorf("%w: series %s: %w", ErrAdvanceFailed, anchor.ID, err)
	}
	task.ID = id

	a.logger.Info("series advanced",
		"series", anchor.ID,
		"completed", completed.ID,
		"next", id,
		"due", task.DueDate)
	return mo.Some(task), nil
}

// resolveAnchor returns the task owning the rule of completed's series
func (a *Advancer) resolveAnchor(ctx context.Context, completed storage.Task) (storage.Task, error) {
	if completed.ParentTaskID == "" {
		return completed, nil
	}
	parent, err := a.store.GetTask(ctx, completed.ParentTaskID)
	if err != nil {
		return storage.Task{}, fmt.Errorf("failed to load series anchor %s: %w", completed.ParentTaskID, err)
	}
	return *parent, nil
}
