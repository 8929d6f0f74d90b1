// Package calendar buckets persisted tasks and virtual instances into days
// for calendar and agenda views.
package calendar

import (
	"sort"
	"time"

	"github.com/cyp0633/taskrecur/materialize"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

// Entry is one item shown on a day: either a stored task or a virtual instance
type Entry struct {
	Task    *storage.Task
	Virtual *materialize.VirtualInstance
}

// IsVirtual reports whether the entry has no stored row behind it
func (e Entry) IsVirtual() bool { return e.Virtual != nil }

func (e Entry) Title() string {
	if e.Virtual != nil {
		return e.Virtual.Title
	}
	return e.Task.Title
}

func (e Entry) DueDate() time.Time {
	if e.Virtual != nil {
		return e.Virtual.DueDate
	}
	return e.Task.DueDate
}

func (e Entry) Status() storage.Status {
	if e.Virtual != nil {
		return e.Virtual.Status
	}
	return e.Task.Status
}

func (e Entry) Priority() storage.Priority {
	if e.Virtual != nil {
		return e.Virtual.Priority
	}
	return e.Task.Priority
}

// SeriesID is the anchor id of the entry's series, or "" for a standalone task
func (e Entry) SeriesID() string {
	if e.Virtual != nil {
		return e.Virtual.ParentTaskID
	}
	return e.Task.SeriesID()
}

// Day holds the entries due on one calendar day
type Day struct {
	Date    time.Time
	Entries []Entry
}

// Build lays out every day of [windowStart, windowEnd], including empty ones.
// Stored tasks come first on each day in input order, then virtual instances.
// A virtual instance is hidden when a stored task of the same series is
// already due that day, so a completed or advanced occurrence is not shown twice.
func Build(tasks []storage.Task, instances []materialize.VirtualInstance, windowStart, windowEnd time.Time) []Day {
	total := recurrence.WholeDaysBetween(windowStart, windowEnd)
	if total < 0 {
		return nil
	}

	first := recurrence.DayOf(windowStart)
	days := make([]Day, total+1)
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i)
	}

	type seriesDay struct {
		series string
		day    int
	}
	covered := make(map[seriesDay]bool)

	for i := range tasks {
		task := &tasks[i]
		if task.DueDate.IsZero() {
			continue
		}
		offset := recurrence.WholeDaysBetween(first, task.DueDate)
		if offset < 0 || offset > total {
			continue
		}
		days[offset].Entries = append(days[offset].Entries, Entry{Task: task})
		if id := task.SeriesID(); id != "" {
			covered[seriesDay{id, offset}] = true
		}
	}

	for i := range instances {
		inst := &instances[i]
		offset := recurrence.WholeDaysBetween(first, inst.DueDate)
		if offset < 0 || offset > total || covered[seriesDay{inst.ParentTaskID, offset}] {
			continue
		}
		days[offset].Entries = append(days[offset].Entries, Entry{Virtual: inst})
	}

	return days
}

// SortByTime orders each day's entries by due time, keeping the existing
// order for equal times
func SortByTime(days []Day) {
	for _, d := range days {
		entries := d.Entries
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].DueDate().Before(entries[j].DueDate())
		})
	}
}

// NonEmpty drops days without entries
func NonEmpty(days []Day) []Day {
	var out []Day
	for _, d := range days {
		if len(d.Entries) > 0 {
			out = append(out, d)
		}
	}
	return out
}
