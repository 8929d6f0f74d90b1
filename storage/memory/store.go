// memory based implementation for testing purposes and the demo CLI
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

var (
	_ storage.TaskStore  = (*Store)(nil)
	_ storage.Subscriber = (*Store)(nil)
)

// Store implements storage.TaskStore and storage.Subscriber using in-memory maps
type Store struct {
	mu        sync.RWMutex
	order     []string                // task ids in insertion order
	tasks     map[string]*storage.Task // key: task id
	overrides map[storage.OverrideKey]storage.Override

	subs   map[int]chan []storage.Task
	nextID int

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for store events
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		tasks:     make(map[string]*storage.Task),
		overrides: make(map[storage.OverrideKey]storage.Override),
		subs:      make(map[int]chan []storage.Task),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func copyTask(t *storage.Task) storage.Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		c.Recurrence = &r
	}
	return c
}

// Task operations

// CreateTask validates and stores task. An empty id is filled with a fresh
// UUID and an empty status defaults to todo. A second task due the same day
// in the same series is rejected with ErrConflict.
func (s *Store) CreateTask(_ context.Context, task storage.Task) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := s.tasks[task.ID]; exists {
		return "", &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "task already exists",
		}
	}
	if task.ParentTaskID != "" && !task.DueDate.IsZero() {
		if existing := s.findSeriesTaskOnDay(task.ParentTaskID, task.DueDate); existing != "" {
			s.logger.Warn("duplicate occurrence rejected",
				"parent", task.ParentTaskID,
				"day", recurrence.DayOf(task.DueDate).Format(recurrence.DateLayout),
				"existing", existing)
			return "", &storage.Error{
				Type:    storage.ErrConflict,
				Message: "series already has a task due that day",
			}
		}
	}
	if task.Status == "" {
		task.Status = storage.InitialStatus
	}

	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	stored := copyTask(&task)
	s.tasks[task.ID] = &stored
	s.order = append(s.order, task.ID)

	s.logger.Debug("task created", "id", task.ID, "parent", task.ParentTaskID, "due", task.DueDate)
	s.broadcastLocked()
	return task.ID, nil
}

// findSeriesTaskOnDay returns the id of a follow-on of parentID due on due's day
func (s *Store) findSeriesTaskOnDay(parentID string, due time.Time) string {
	for _, id := range s.order {
		t := s.tasks[id]
		if t.ParentTaskID == parentID && recurrence.WholeDaysBetween(t.DueDate, due) == 0 {
			return id
		}
	}
	return ""
}

// GetTask finds a task by id
func (s *Store) GetTask(_ context.Context, id string) (*storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "task not found",
		}
	}

	c := copyTask(task)
	return &c, nil
}

// UpdateTask replaces a stored task, keeping its CreatedAt
func (s *Store) UpdateTask(_ context.Context, task storage.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "task not found",
		}
	}

	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = s.now()
	if task.Status == "" {
		task.Status = existing.Status
	}

	stored := copyTask(&task)
	s.tasks[task.ID] = &stored

	s.logger.Debug("task updated", "id", task.ID, "status", task.Status)
	s.broadcastLocked()
	return nil
}

// ListTasks returns every task in insertion order
func (s *Store) ListTasks(_ context.Context) ([]storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(), nil
}

// QueryRecurringTasks returns every series anchor in insertion order
func (s *Store) QueryRecurringTasks(_ context.Context) ([]storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []storage.Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.IsSeriesAnchor() {
			tasks = append(tasks, copyTask(t))
		}
	}
	return tasks, nil
}

// Override operations

// PutOverride stores or replaces the override for one series occurrence.
// The series anchor must exist.
func (s *Store) PutOverride(_ context.Context, o storage.Override) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.tasks[o.ParentTaskID]
	if !ok || !parent.IsSeriesAnchor() {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "series anchor not found",
		}
	}

	o.Date = recurrence.DayOf(o.Date)
	s.overrides[o.Key()] = o

	s.logger.Debug("override stored", "parent", o.ParentTaskID, "day", o.Date.Format(recurrence.DateLayout))
	s.broadcastLocked()
	return nil
}

// DeleteOverride removes the override for the occurrence on day, if any
func (s *Store) DeleteOverride(_ context.Context, parentTaskID string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storage.NewOverrideKey(parentTaskID, day)
	if _, ok := s.overrides[key]; !ok {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "override not found",
		}
	}
	delete(s.overrides, key)
	s.broadcastLocked()
	return nil
}

// GetOverridesForWindow returns the overrides of one series whose day falls
// within [start, end], ordered by date
func (s *Store) GetOverridesForWindow(_ context.Context, parentTaskID string, start, end time.Time) ([]storage.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Override
	for key, o := range s.overrides {
		if key.ParentTaskID != parentTaskID {
			continue
		}
		if recurrence.WholeDaysBetween(start, o.Date) < 0 || recurrence.WholeDaysBetween(o.Date, end) < 0 {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Subscriptions

// Subscribe delivers the current task list immediately and after every
// change. Slow readers only ever see the latest snapshot.
func (s *Store) Subscribe(ctx context.Context) (<-chan []storage.Task, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan []storage.Task, 1)
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

func (s *Store) snapshotLocked() []storage.Task {
	tasks := make([]storage.Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, copyTask(s.tasks[id]))
	}
	return tasks
}

// broadcastLocked must be called with s.mu held for writing
func (s *Store) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	for _, ch := range s.subs {
		// drop the stale snapshot, if unread
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshotLocked()
	}
}
