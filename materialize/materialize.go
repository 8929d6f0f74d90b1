// Package materialize expands recurring series into display-only virtual
// instances for a date window. Nothing produced here is ever persisted.
package materialize

import (
	"sort"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

// VirtualInstance is one occurrence of a series shown in a window
type VirtualInstance struct {
	ParentTaskID    string           `json:"parentTaskId"`
	DueDate         time.Time        `json:"dueDate"`
	OccurrenceIndex int              `json:"occurrenceIndex"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Status          storage.Status   `json:"status"`
	Priority        storage.Priority `json:"priority,omitempty"`
	Assignee        string           `json:"assignee,omitempty"`
	ProjectID       string           `json:"projectId,omitempty"`
	Overridden      bool             `json:"overridden,omitempty"`
}

// IsVirtualInstance marks the value as not backed by a stored row
func (v VirtualInstance) IsVirtualInstance() bool { return true }

// Day returns the calendar day of the instance
func (v VirtualInstance) Day() time.Time { return recurrence.DayOf(v.DueDate) }

// OverrideLookup finds the override of one series occurrence
type OverrideLookup interface {
	Lookup(parentTaskID string, day time.Time) (storage.Override, bool)
}

// OverrideIndex is an OverrideLookup backed by a map
type OverrideIndex map[storage.OverrideKey]storage.Override

// NewOverrideIndex indexes overrides by (parent, day). Later entries win.
func NewOverrideIndex(overrides ...storage.Override) OverrideIndex {
	idx := make(OverrideIndex, len(overrides))
	for _, o := range overrides {
		idx[o.Key()] = o
	}
	return idx
}

// Add indexes more overrides
func (idx OverrideIndex) Add(overrides ...storage.Override) {
	for _, o := range overrides {
		idx[o.Key()] = o
	}
}

func (idx OverrideIndex) Lookup(parentTaskID string, day time.Time) (storage.Override, bool) {
	o, ok := idx[storage.NewOverrideKey(parentTaskID, day)]
	return o, ok
}

// occurrenceFunc lists occurrence days of rule in a window
type occurrenceFunc func(rule recurrence.Rule, anchor, windowStart, windowEnd time.Time) []time.Time

// Eligible reports whether task is an open series anchor that should be expanded
func Eligible(task *storage.Task) bool {
	return task.IsSeriesAnchor() && !task.Recurrence.IsZero() && !task.Status.IsClosed()
}

// Materialize expands every open series anchor in tasks into virtual
// instances for the closed window [windowStart, windowEnd]. The result is
// ordered by day; instances on the same day keep the input task order.
// overrides may be nil.
func Materialize(tasks []storage.Task, windowStart, windowEnd time.Time, overrides OverrideLookup) []VirtualInstance {
	return materialize(tasks, windowStart, windowEnd, overrides, recurrence.Occurrences)
}

func materialize(tasks []storage.Task, windowStart, windowEnd time.Time, overrides OverrideLookup, occurrences occurrenceFunc) []VirtualInstance {
	if windowEnd.Before(windowStart) {
		return nil
	}

	var out []VirtualInstance
	for i := range tasks {
		task := &tasks[i]
		if !Eligible(task) {
			continue
		}
		rule := *task.Recurrence
		tod := recurrence.TimeOfDayOf(task.DueDate)

		for _, day := range occurrences(rule, task.DueDate, windowStart, windowEnd) {
			inst := VirtualInstance{
				ParentTaskID:    task.ID,
				DueDate:         recurrence.Combine(day, tod),
				OccurrenceIndex: recurrence.OccurrenceIndex(task.DueDate, day, rule),
				Title:           task.Title,
				Description:     task.Description,
				Status:          task.Status,
				Priority:        task.Priority,
				Assignee:        task.Assignee,
				ProjectID:       task.ProjectID,
			}
			if overrides != nil {
				if o, ok := overrides.Lookup(task.ID, day); ok {
					inst = applyOverride(inst, o)
				}
			}
			out = append(out, inst)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return recurrence.WholeDaysBetween(out[i].DueDate, out[j].DueDate) > 0
	})
	return out
}

// applyOverride patches display fields. The day and parent are fixed.
func applyOverride(inst VirtualInstance, o storage.Override) VirtualInstance {
	if o.Title != nil {
		inst.Title = *o.Title
	}
	if o.Description != nil {
		inst.Description = *o.Description
	}
	if o.Status != nil {
		inst.Status = *o.Status
	}
	if o.Priority != nil {
		inst.Priority = *o.Priority
	}
	if o.DueTime != nil {
		inst.DueDate = recurrence.Combine(inst.DueDate, *o.DueTime)
	}
	inst.Overridden = true
	return inst
}
