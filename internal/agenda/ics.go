package agenda

import (
	"fmt"
	"io"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/taskrecur/calendar"
	"github.com/cyp0633/taskrecur/storage"
)

// ToCalendar exports the entries of days as VTODOs. Virtual instances share
// their anchor's UID and are told apart by RECURRENCE-ID.
func ToCalendar(days []calendar.Day) (*ical.Calendar, error) {
	cal := storage.NewCalendar()
	for _, d := range days {
		for _, e := range d.Entries {
			comp, err := entryToTodo(e)
			if err != nil {
				return nil, err
			}
			cal.Children = append(cal.Children, comp)
		}
	}
	return cal, nil
}

func entryToTodo(e calendar.Entry) (*ical.Component, error) {
	if !e.IsVirtual() {
		return storage.TaskToTodo(*e.Task)
	}

	v := e.Virtual
	comp, err := storage.TaskToTodo(storage.Task{
		ID:          v.ParentTaskID,
		Title:       v.Title,
		Description: v.Description,
		Status:      v.Status,
		Priority:    v.Priority,
		Assignee:    v.Assignee,
		ProjectID:   v.ProjectID,
		DueDate:     v.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export occurrence %d of %s: %w", v.OccurrenceIndex, v.ParentTaskID, err)
	}
	comp.Props.SetDateTime(ical.PropRecurrenceID, v.DueDate)
	return comp, nil
}

// WriteICS encodes days as an iCalendar document. Nothing is written when
// the window has no entries.
func WriteICS(w io.Writer, days []calendar.Day) error {
	cal, err := ToCalendar(days)
	if err != nil {
		return err
	}
	if len(cal.Children) == 0 {
		return nil
	}
	return ical.NewEncoder(w).Encode(cal)
}
