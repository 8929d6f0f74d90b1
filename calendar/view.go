package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/taskrecur/materialize"
	"github.com/cyp0633/taskrecur/storage"
)

// TaskLister lists every stored task
type TaskLister interface {
	ListTasks(ctx context.Context) ([]storage.Task, error)
}

// View renders calendar windows from stored tasks and their series
type View struct {
	tasks        TaskLister
	materializer *materialize.Service
	logger       *slog.Logger
}

// Option configures a View
type Option func(*View)

// WithLogger sets the logger for the view
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewView creates a view listing tasks from tasks and expanding series with materializer
func NewView(tasks TaskLister, materializer *materialize.Service, opts ...Option) *View {
	v := &View{
		tasks:        tasks,
		materializer: materializer,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Window returns the bucketed days of [windowStart, windowEnd]
func (v *View) Window(ctx context.Context, windowStart, windowEnd time.Time) ([]Day, error) {
	tasks, err := v.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return v.render(ctx, tasks, windowStart, windowEnd)
}

func (v *View) render(ctx context.Context, tasks []storage.Task, windowStart, windowEnd time.Time) ([]Day, error) {
	instances, err := v.materializer.MaterializeVirtualInstances(ctx, tasks, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	days := Build(tasks, instances, windowStart, windowEnd)
	SortByTime(days)
	return days, nil
}

// Watch re-renders the window for every snapshot sub delivers. The returned
// channel holds only the latest rendering and is closed once the
// subscription ends. Snapshots that fail to render are logged and skipped.
func (v *View) Watch(ctx context.Context, sub storage.Subscriber, windowStart, windowEnd time.Time) <-chan []Day {
	snapshots, cancel := sub.Subscribe(ctx)
	out := make(chan []Day, 1)

	go func() {
		defer close(out)
		defer cancel()

		for tasks := range snapshots {
			days, err := v.render(ctx, tasks, windowStart, windowEnd)
			if err != nil {
				v.logger.Error("failed to render calendar window", "error", err)
				continue
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- days:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
