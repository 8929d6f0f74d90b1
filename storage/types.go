package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	// ErrConflict is returned when a series already has a task due on the same day
	ErrConflict ErrorType = "conflict"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsErrorType reports whether err is, or wraps, a storage error of type t
func IsErrorType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

// Status is a task's workflow state
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// InitialStatus is the status every new occurrence of a series starts in
const InitialStatus = StatusTodo

// IsClosed reports whether no further work is expected on the task
func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority ranks tasks for display
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a persisted task row. A series anchor has IsRecurring set and owns
// the Recurrence rule; follow-on occurrences point back through ParentTaskID
// and never carry a rule of their own.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	DueDate     time.Time  `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	IsRecurring  bool             `json:"isRecurring,omitempty"`
	Recurrence   *recurrence.Rule `json:"recurrence,omitempty"`
	ParentTaskID string           `json:"parentTaskId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsSeriesAnchor reports whether the task owns a recurrence rule
func (t *Task) IsSeriesAnchor() bool {
	return t.IsRecurring && t.Recurrence != nil
}

// SeriesID returns the id of the series the task belongs to, or "" for a standalone task
func (t *Task) SeriesID() string {
	if t.ParentTaskID != "" {
		return t.ParentTaskID
	}
	if t.IsSeriesAnchor() {
		return t.ID
	}
	return ""
}

// Validate checks the fields a store must reject
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &Error{Type: ErrInvalidInput, Message: "task title is required"}
	}
	if t.Status != "" && !t.Status.Valid() {
		return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("unknown status %q", t.Status)}
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("unknown priority %q", t.Priority)}
	}
	if t.IsRecurring {
		if t.Recurrence == nil {
			return &Error{Type: ErrInvalidInput, Message: "recurring task has no recurrence rule"}
		}
		if err := t.Recurrence.Validate(); err != nil {
			return &Error{Type: ErrInvalidInput, Message: "recurring task has an invalid rule", Err: err}
		}
		if t.DueDate.IsZero() {
			return &Error{Type: ErrInvalidInput, Message: "recurring task needs a due date to anchor the series"}
		}
	}
	if t.ParentTaskID != "" && t.Recurrence != nil {
		return &Error{Type: ErrInvalidInput, Message: "follow-on tasks cannot carry their own recurrence rule"}
	}
	return nil
}

// Override patches the displayed fields of one occurrence of a series,
// identified by the anchor's id and the occurrence's calendar day.
type Override struct {
	ParentTaskID string                `json:"parentTaskId"`
	Date         time.Time             `json:"date"`
	Title        *string               `json:"title,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Status       *Status               `json:"status,omitempty"`
	Priority     *Priority             `json:"priority,omitempty"`
	DueTime      *recurrence.TimeOfDay `json:"dueTime,omitempty"`
}

// Key returns the (parent, day) identity of the override
func (o Override) Key() OverrideKey {
	return NewOverrideKey(o.ParentTaskID, o.Date)
}

// Validate checks the override's identity and patched values
func (o Override) Validate() error {
	if o.ParentTaskID == "" {
		return &Error{Type: ErrInvalidInput, Message: "override needs a parent task id"}
	}
	if o.Date.IsZero() {
		return &Error{Type: ErrInvalidInput, Message: "override needs an occurrence date"}
	}
	if o.Status != nil && !o.Status.Valid() {
		return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("unknown status %q", *o.Status)}
	}
	if o.Priority != nil && !o.Priority.Valid() {
		return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("unknown priority %q", *o.Priority)}
	}
	if tod := o.DueTime; tod != nil {
		if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 || tod.Second < 0 || tod.Second > 59 {
			return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("invalid due time %s", tod)}
		}
	}
	return nil
}

// OverrideKey identifies one occurrence of one series
type OverrideKey struct {
	ParentTaskID string
	Day          string // recurrence.DateLayout
}

// NewOverrideKey builds the key for a series occurrence on day's calendar date
func NewOverrideKey(parentTaskID string, day time.Time) OverrideKey {
	return OverrideKey{ParentTaskID: parentTaskID, Day: day.Format(recurrence.DateLayout)}
}
