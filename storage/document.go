package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// ParseTasks reads a JSON array of tasks. Comments and trailing commas are
// allowed. Each task is validated.
func ParseTasks(data []byte) ([]Task, error) {
	stripped := jsonc.ToJSON(data)

	var tasks []Task
	if err := json.Unmarshal(stripped, &tasks); err != nil {
		return nil, fmt.Errorf("parsing tasks: %w", err)
	}
	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			return nil, fmt.Errorf("task %d (%q): %w", i, tasks[i].Title, err)
		}
	}
	return tasks, nil
}

// ReadTasksFile reads a JSONC task file from disk
func ReadTasksFile(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	tasks, err := ParseTasks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}
