package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cyp0633/taskrecur/recurrence"
)

// MockTaskStore implements the TaskStore interface for testing
type MockTaskStore struct {
	mock.Mock
}

// QueryRecurringTasks implements the TaskStore interface
func (m *MockTaskStore) QueryRecurringTasks(ctx context.Context) ([]Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Task), args.Error(1)
}

// GetOverridesForWindow implements the TaskStore interface
func (m *MockTaskStore) GetOverridesForWindow(ctx context.Context, parentTaskID string, start, end time.Time) ([]Override, error) {
	args := m.Called(ctx, parentTaskID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Override), args.Error(1)
}

// CreateTask implements the TaskStore interface
func (m *MockTaskStore) CreateTask(ctx context.Context, task Task) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}

// GetTask implements the TaskStore interface
func (m *MockTaskStore) GetTask(ctx context.Context, id string) (*Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	task := args.Get(0).(*Task)
	if task == nil {
		return nil, args.Error(1)
	}
	return task, args.Error(1)
}

// --- Helper methods for creating test data ---

// NewMockAnchor creates a recurring series anchor due at due
func NewMockAnchor(id, title string, due time.Time, rule recurrence.Rule) Task {
	r := rule
	return Task{
		ID:          id,
		Title:       title,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		DueDate:     due,
		IsRecurring: true,
		Recurrence:  &r,
	}
}
