package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/taskrecur/internal/agenda"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

func TestWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.Local)

	start, end, err := window("", 7, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.Local), end)

	start, _, err = window("2024-02-28", 1, now)
	require.NoError(t, err)
	assert.Equal(t, 28, start.Day())

	_, _, err = window("28/02/2024", 1, now)
	assert.Error(t, err)
	_, _, err = window("", 0, now)
	assert.Error(t, err)
}

func TestRun_XML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--from", "2024-01-01", "--days", "7", "--format", "xml"}, &out, io.Discard))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out.Bytes()))

	var a agenda.Agenda
	require.NoError(t, a.Parse(doc))
	require.Len(t, a.Days, 7)

	standups := 0
	for _, d := range a.Days {
		for _, it := range d.Items {
			if it.Title == "Team standup" {
				standups++
			}
		}
	}
	assert.Equal(t, 7, standups)
}

func TestRun_CompleteAdvancesSeries(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--from", "2024-01-01", "--days", "3", "--complete", "team standup"}, &out, io.Discard))

	text := out.String()
	assert.Contains(t, text, "completed")
	assert.Contains(t, text, "Team standup")
}

func TestRun_Import(t *testing.T) {
	rule := recurrence.MustRule(recurrence.Weekly{Interval: 1})
	ics, err := storage.TasksToICS([]storage.Task{
		storage.NewMockAnchor("gym", "Gym", time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC), rule),
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tasks.ics")
	require.NoError(t, os.WriteFile(path, []byte(ics), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--import", path, "--from", "2024-01-01", "--days", "14", "--format", "ics"}, &out, io.Discard))

	tasks, err := storage.ICSToTasks(out.String())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "UID:gym"))
}

func TestRun_BadFlags(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"--format", "pdf"}, &out, io.Discard))
	assert.Error(t, run([]string{"extra"}, &out, io.Discard))
	assert.Error(t, run([]string{"--complete", "nothing like this"}, &out, io.Discard))
}

func TestRun_ImportJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`[
		// fortnightly payroll
		{"id": "payroll", "title": "Run payroll", "status": "todo", "dueDate": "2024-01-05T10:00:00Z",
		 "isRecurring": true, "recurrence": {"frequency": "weekly", "interval": 2}},
	]`), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--import", path, "--from", "2024-01-01", "--days", "31"}, &out, io.Discard))
	assert.Equal(t, 2, strings.Count(out.String(), "Run payroll"))
}

func TestRun_Reminders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "taxes", "title": "File taxes", "status": "todo", "dueDate": "2020-04-15T09:00:00Z"},
		{"id": "done", "title": "Old chore", "status": "completed", "dueDate": "2020-04-15T09:00:00Z"},
	]`), 0o600))

	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"--import", path, "--from", "2020-04-14", "--days", "3", "--reminders"}, &out, &errOut))

	assert.Contains(t, errOut.String(), "File taxes (due 2020-04-15 09:00)")
	assert.NotContains(t, errOut.String(), "Old chore")
	assert.NotContains(t, out.String(), "(due 2020-04-15")

	errOut.Reset()
	require.NoError(t, run([]string{"--import", path, "--from", "2020-04-14", "--days", "3"}, &out, &errOut))
	assert.Empty(t, errOut.String())
}
