// Package series decides whether completing an occurrence of a recurring
// task should create the next one, and persists it when it should.
package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

var (
	// ErrAdvanceFailed wraps a store failure while persisting the next occurrence
	ErrAdvanceFailed = errors.New("failed to advance series")
	// ErrNotCompleted is returned when advancing from a task that is not completed
	ErrNotCompleted = errors.New("task is not completed")
	// ErrNoRule is returned when no recurrence rule can be resolved for the task
	ErrNoRule = errors.New("task has no recurrence rule")
)

// ShouldCreateNext reports whether the series continues after the occurrence
// due at completedDue. anchorDue is the series anchor's due date, from which
// occurrence indices are counted. The series also ends when the next due date
// would fall past the cap, since bucketed indices can repeat or skip. A
// malformed rule yields an error and false.
func ShouldCreateNext(rule recurrence.Rule, anchorDue, completedDue, now time.Time) (bool, error) {
	if err := rule.Validate(); err != nil {
		return false, err
	}
	if end, ok := rule.EndDate().Get(); ok && !end.After(now) {
		return false, nil
	}
	if limit, ok := rule.MaxOccurrences().Get(); ok {
		if recurrence.OccurrenceIndex(anchorDue, completedDue, rule) >= limit {
			return false, nil
		}
		if recurrence.OccurrenceIndex(anchorDue, AdvanceDue(completedDue, rule), rule) > limit {
			return false, nil
		}
	}
	return true, nil
}

// AdvanceDue returns the due date of the occurrence after due
func AdvanceDue(due time.Time, rule recurrence.Rule) time.Time {
	return recurrence.Advance(due, rule)
}

// Next builds the occurrence that follows completed, or None when the series
// has ended. anchor owns the rule; for the first occurrence it is completed
// itself. The returned task has a fresh id and is not yet persisted.
func Next(completed, anchor storage.Task, now time.Time) (mo.Option[storage.Task], error) {
	if anchor.Recurrence == nil {
		return mo.None[storage.Task](), ErrNoRule
	}
	rule := *anchor.Recurrence

	ok, err := ShouldCreateNext(rule, anchor.DueDate, completed.DueDate, now)
	if err != nil {
		return mo.None[storage.Task](), fmt.Errorf("series %s: %w", anchor.ID, err)
	}
	if !ok {
		return mo.None[storage.Task](), nil
	}

	parentID := completed.ParentTaskID
	if parentID == "" {
		parentID = completed.ID
	}

	return mo.Some(storage.Task{
		ID:           uuid.NewString(),
		Title:        completed.Title,
		Description:  completed.Description,
		Status:       storage.InitialStatus,
		Priority:     completed.Priority,
		Assignee:     completed.Assignee,
		ProjectID:    completed.ProjectID,
		DueDate:      AdvanceDue(completed.DueDate, rule),
		ParentTaskID: parentID,
	}), nil
}
