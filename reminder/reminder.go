// Package reminder finds overdue and soon-due entries and remembers which
// ones were already reported, so each is surfaced once per tracker lifetime.
package reminder

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cyp0633/taskrecur/calendar"
	"github.com/cyp0633/taskrecur/recurrence"
)

// Kind classifies a reminder
type Kind string

const (
	KindOverdue Kind = "overdue"
	KindDueSoon Kind = "due_soon"
)

// DefaultLead is how far ahead an entry counts as due soon
const DefaultLead = 24 * time.Hour

// Reminder is one notification-worthy entry
type Reminder struct {
	Kind     Kind
	EntryID  string // task id, or series id plus day for virtual instances
	SeriesID string
	Title    string
	DueDate  time.Time
	Virtual  bool
}

// Key identifies the reminder in the notified set
func (r Reminder) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.EntryID, r.Kind, r.DueDate.Format(time.RFC3339))
}

// Tracker classifies entries and keeps the set of reminders already issued
type Tracker struct {
	mu       sync.Mutex
	notified map[string]struct{}
	lead     time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger for the tracker
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithLead sets the due-soon horizon
func WithLead(lead time.Duration) Option {
	return func(t *Tracker) {
		t.lead = lead
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker with an empty notified set
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		notified: make(map[string]struct{}),
		lead:     DefaultLead,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Classify returns the kind of reminder entry warrants at now, if any.
// Closed entries never warrant one.
func Classify(entry calendar.Entry, now time.Time, lead time.Duration) (Kind, bool) {
	if entry.Status().IsClosed() {
		return "", false
	}
	due := entry.DueDate()
	if due.IsZero() {
		return "", false
	}
	if due.Before(now) {
		return KindOverdue, true
	}
	if !due.After(now.Add(lead)) {
		return KindDueSoon, true
	}
	return "", false
}

// Check returns the reminders among days that have not been issued yet and
// records them as issued
func (t *Tracker) Check(days []calendar.Day) []Reminder {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Reminder
	for _, day := range days {
		for _, entry := range day.Entries {
			kind, ok := Classify(entry, now, t.lead)
			if !ok {
				continue
			}
			r := newReminder(entry, kind)
			key := r.Key()
			if _, seen := t.notified[key]; seen {
				continue
			}
			t.notified[key] = struct{}{}
			out = append(out, r)
		}
	}

	if len(out) > 0 {
		t.logger.Info("reminders issued", "count", len(out))
	}
	return out
}

// Forget removes one reminder from the notified set so it can fire again
func (t *Tracker) Forget(r Reminder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.notified, r.Key())
}

// Reset clears the notified set, as at the start of a new session
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notified = make(map[string]struct{})
	t.logger.Debug("reminder set reset")
}

// Notified reports how many reminders are currently recorded
func (t *Tracker) Notified() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.notified)
}

func newReminder(entry calendar.Entry, kind Kind) Reminder {
	r := Reminder{
		Kind:     kind,
		SeriesID: entry.SeriesID(),
		Title:    entry.Title(),
		DueDate:  entry.DueDate(),
		Virtual:  entry.IsVirtual(),
	}
	if entry.IsVirtual() {
		r.EntryID = entry.Virtual.ParentTaskID + "@" + entry.Virtual.Day().Format(recurrence.DateLayout)
	} else {
		r.EntryID = entry.Task.ID
	}
	return r
}
