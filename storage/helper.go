package storage

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/taskrecur/recurrence"
)

const (
	ProductID = "-//TaskRecur//Recurring Tasks//EN"

	propAssignee = "X-TASKRECUR-ASSIGNEE"
	propProject  = "X-TASKRECUR-PROJECT"
)

var statusToICal = map[Status]string{
	StatusTodo:       "NEEDS-ACTION",
	StatusInProgress: "IN-PROCESS",
	StatusCompleted:  "COMPLETED",
	StatusCancelled:  "CANCELLED",
}

var priorityToICal = map[Priority]int{
	PriorityUrgent: 1,
	PriorityHigh:   3,
	PriorityMedium: 5,
	PriorityLow:    9,
}

// priorityFromICal maps the RFC 5545 1-9 scale back onto the four levels
func priorityFromICal(v int) Priority {
	switch {
	case v <= 0:
		return ""
	case v <= 2:
		return PriorityUrgent
	case v <= 4:
		return PriorityHigh
	case v == 5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TaskToTodo converts a task into a VTODO component. Anchors get DTSTART and
// RRULE; follow-ons get RELATED-TO pointing at their anchor.
func TaskToTodo(task Task) (*ical.Component, error) {
	comp := ical.NewComponent(ical.CompToDo)

	id := task.ID
	if id == "" {
		id = uuid.NewString()
	}
	comp.Props.SetText(ical.PropUID, id)

	stamp := task.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	comp.Props.SetText(ical.PropSummary, task.Title)
	if task.Description != "" {
		comp.Props.SetText(ical.PropDescription, task.Description)
	}
	if s, ok := statusToICal[task.Status]; ok {
		comp.Props.SetText(ical.PropStatus, s)
	}
	if p, ok := priorityToICal[task.Priority]; ok {
		prop := ical.NewProp(ical.PropPriority)
		prop.Value = strconv.Itoa(p)
		comp.Props.Set(prop)
	}
	if !task.DueDate.IsZero() {
		comp.Props.SetDateTime(ical.PropDue, task.DueDate)
	}
	if task.CompletedAt != nil {
		comp.Props.SetDateTime(ical.PropCompleted, task.CompletedAt.UTC())
	}
	if task.Assignee != "" {
		comp.Props.SetText(propAssignee, task.Assignee)
	}
	if task.ProjectID != "" {
		comp.Props.SetText(propProject, task.ProjectID)
	}
	if task.ParentTaskID != "" {
		comp.Props.SetText(ical.PropRelatedTo, task.ParentTaskID)
	}
	if task.IsSeriesAnchor() {
		comp.Props.SetDateTime(ical.PropDateTimeStart, task.DueDate)
		if err := recurrence.SetComponentRule(comp, *task.Recurrence); err != nil {
			return nil, fmt.Errorf("failed to encode recurrence of task %s: %w", id, err)
		}
	}

	return comp, nil
}

// TodoToTask converts a VTODO component back into a task
func TodoToTask(comp *ical.Component) (Task, error) {
	if comp == nil || comp.Name != ical.CompToDo {
		return Task{}, &Error{Type: ErrInvalidInput, Message: "component is not a VTODO"}
	}

	var task Task
	var err error

	if task.ID, err = comp.Props.Text(ical.PropUID); err != nil {
		return Task{}, fmt.Errorf("failed to read UID: %w", err)
	}
	if task.Title, err = comp.Props.Text(ical.PropSummary); err != nil {
		return Task{}, fmt.Errorf("failed to read SUMMARY: %w", err)
	}
	if task.Description, err = comp.Props.Text(ical.PropDescription); err != nil {
		return Task{}, fmt.Errorf("failed to read DESCRIPTION: %w", err)
	}
	if task.Assignee, err = comp.Props.Text(propAssignee); err != nil {
		return Task{}, fmt.Errorf("failed to read assignee: %w", err)
	}
	if task.ProjectID, err = comp.Props.Text(propProject); err != nil {
		return Task{}, fmt.Errorf("failed to read project: %w", err)
	}
	if task.ParentTaskID, err = comp.Props.Text(ical.PropRelatedTo); err != nil {
		return Task{}, fmt.Errorf("failed to read RELATED-TO: %w", err)
	}

	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		for s, v := range statusToICal {
			if strings.EqualFold(prop.Value, v) {
				task.Status = s
			}
		}
	}
	if task.Status == "" {
		task.Status = InitialStatus
	}

	if prop := comp.Props.Get(ical.PropPriority); prop != nil {
		v, err := strconv.Atoi(strings.TrimSpace(prop.Value))
		if err != nil {
			return Task{}, fmt.Errorf("failed to read PRIORITY: %w", err)
		}
		task.Priority = priorityFromICal(v)
	}

	if task.DueDate, err = comp.Props.DateTime(ical.PropDue, time.Local); err != nil {
		return Task{}, fmt.Errorf("failed to read DUE: %w", err)
	}
	if completed, err := comp.Props.DateTime(ical.PropCompleted, time.UTC); err != nil {
		return Task{}, fmt.Errorf("failed to read COMPLETED: %w", err)
	} else if !completed.IsZero() {
		task.CompletedAt = &completed
	}

	rule, err := recurrence.ExtractRuleFromComponent(comp)
	if err != nil {
		return Task{}, fmt.Errorf("failed to read RRULE of task %s: %w", task.ID, err)
	}
	if r, ok := rule.Get(); ok {
		task.IsRecurring = true
		task.Recurrence = &r
		if task.DueDate.IsZero() {
			// DTSTART anchors the series when DUE is missing
			if task.DueDate, err = comp.Props.DateTime(ical.PropDateTimeStart, time.Local); err != nil {
				return Task{}, fmt.Errorf("failed to read DTSTART: %w", err)
			}
		}
	}

	return task, nil
}

// TasksToICS encodes tasks as a VCALENDAR of VTODOs
func TasksToICS(tasks []Task) (string, error) {
	cal := NewCalendar()
	for _, task := range tasks {
		comp, err := TaskToTodo(task)
		if err != nil {
			return "", err
		}
		cal.Children = append(cal.Children, comp)
	}
	return EncodeCalendar(cal)
}

// ICSToTasks decodes every VTODO of an iCalendar document
func ICSToTasks(ics string) ([]Task, error) {
	dec := ical.NewDecoder(strings.NewReader(ics))

	cal, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	var tasks []Task
	for _, child := range cal.Children {
		if child.Name != ical.CompToDo {
			continue
		}
		task, err := TodoToTask(child)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// NewCalendar returns an empty VCALENDAR with the required properties set
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// EncodeCalendar serialises a calendar to its text form
func EncodeCalendar(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}
