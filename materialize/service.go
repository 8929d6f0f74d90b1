package materialize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

// Service materializes virtual instances with overrides loaded from a store
type Service struct {
	store  storage.TaskStore
	engine *recurrence.Engine
	logger *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine routes occurrence calculation through engine and its cache.
// Windows longer than the engine's MaxWindowDays are computed in chunks.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Service) {
		s.engine = engine
	}
}

// NewService creates a service reading from store
func NewService(store storage.TaskStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaterializeVirtualInstances expands the open series anchors in tasks over
// [windowStart, windowEnd]. The store is only consulted for overrides, and
// not at all when no task is an eligible anchor.
func (s *Service) MaterializeVirtualInstances(ctx context.Context, tasks []storage.Task, windowStart, windowEnd time.Time) ([]VirtualInstance, error) {
	if windowEnd.Before(windowStart) {
		return nil, nil
	}

	var anchors []storage.Task
	for i := range tasks {
		if Eligible(&tasks[i]) {
			anchors = append(anchors, tasks[i])
		}
	}
	if len(anchors) == 0 {
		return nil, nil
	}

	idx := make(OverrideIndex)
	for _, anchor := range anchors {
		overrides, err := s.store.GetOverridesForWindow(ctx, anchor.ID, recurrence.DayOf(windowStart), windowEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to load overrides for series %s: %w", anchor.ID, err)
		}
		idx.Add(overrides...)
	}

	instances := materialize(anchors, windowStart, windowEnd, idx, s.occurrences())

	s.logger.Debug("materialized window",
		"window_start", windowStart.Format(recurrence.DateLayout),
		"window_end", windowEnd.Format(recurrence.DateLayout),
		"series", len(anchors),
		"overrides", len(idx),
		"instances", len(instances))

	return instances, nil
}

// MaterializeWindow queries every series anchor from the store and expands it
func (s *Service) MaterializeWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]VirtualInstance, error) {
	tasks, err := s.store.QueryRecurringTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring tasks: %w", err)
	}
	return s.MaterializeVirtualInstances(ctx, tasks, windowStart, windowEnd)
}

// occurrences picks the calculator. Engine calls are split so that no single
// call exceeds MaxWindowDays and gets truncated.
func (s *Service) occurrences() occurrenceFunc {
	if s.engine == nil {
		return recurrence.Occurrences
	}
	limit := s.engine.Config().MaxWindowDays
	if limit <= 0 {
		return s.engine.CalculateOccurrences
	}
	return func(rule recurrence.Rule, anchor, windowStart, windowEnd time.Time) []time.Time {
		var out []time.Time
		for chunk := windowStart; recurrence.WholeDaysBetween(chunk, windowEnd) >= 0; chunk = recurrence.DayOf(chunk).AddDate(0, 0, limit) {
			chunkEnd := recurrence.DayOf(chunk).AddDate(0, 0, limit-1)
			if chunkEnd.After(windowEnd) {
				chunkEnd = windowEnd
			}
			out = append(out, s.engine.CalculateOccurrences(rule, anchor, chunk, chunkEnd)...)
		}
		return out
	}
}
