package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/cyp0633/taskrecur/storage/memory"
)

func clock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestAdvanceSeries_Anchor(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	anchor := storage.NewMockAnchor("anchor", "Standup", due, recurrence.MustRule(recurrence.Daily{Interval: 1}))
	anchor.Status = storage.StatusCompleted

	store := new(storage.MockTaskStore)
	store.On("CreateTask", ctx, mock.MatchedBy(func(task storage.Task) bool {
		return task.ParentTaskID == "anchor" && task.DueDate.Equal(due.AddDate(0, 0, 1)) && task.Status == storage.StatusTodo
	})).Return("stored-id", nil)

	next, err := NewAdvancer(store, clock(due)).AdvanceSeries(ctx, anchor)
	require.NoError(t, err)
	task, ok := next.Get()
	require.True(t, ok)
	assert.Equal(t, "stored-id", task.ID)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "GetTask", mock.Anything, mock.Anything)
}

func TestAdvanceSeries_ExhaustedMakesNoWrite(t *testing.T) {
	ctx := context.Background()
	due := date(2024, 1, 1)
	rule := recurrence.MustRule(recurrence.Daily{Interval: 1}, recurrence.WithMaxOccurrences(3))
	anchor := storage.NewMockAnchor("anchor", "Standup", due, rule)

	store := new(storage.MockTaskStore)
	store.On("GetTask", ctx, "anchor").Return(&anchor, nil)

	// Third occurrence of a three-occurrence series
	third := storage.Task{ID: "third", Title: "Standup", Status: storage.StatusCompleted, ParentTaskID: "anchor", DueDate: date(2024, 1, 3)}

	next, err := NewAdvancer(store, clock(due)).AdvanceSeries(ctx, third)
	require.NoError(t, err)
	assert.True(t, next.IsAbsent())
	store.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestAdvanceSeries_EndDatePassed(t *testing.T) {
	ctx := context.Background()
	anchor := storage.NewMockAnchor("anchor", "Standup", date(2024, 1, 1),
		recurrence.MustRule(recurrence.Daily{Interval: 1}, recurrence.WithEndDate(date(2024, 1, 10))))
	anchor.Status = storage.StatusCompleted

	store := new(storage.MockTaskStore)
	next, err := NewAdvancer(store, clock(date(2024, 1, 11))).AdvanceSeries(ctx, anchor)
	require.NoError(t, err)
	assert.True(t, next.IsAbsent())
	store.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestAdvanceSeries_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	anchor := storage.NewMockAnchor("anchor", "Standup", date(2024, 1, 1), recurrence.MustRule(recurrence.Daily{Interval: 1}))
	anchor.Status = storage.StatusCompleted
	failure := errors.New("write timeout")

	store := new(storage.MockTaskStore)
	store.On("CreateTask", ctx, mock.Anything).Return("", failure).Once()

	next, err := NewAdvancer(store, clock(date(2024, 1, 1))).AdvanceSeries(ctx, anchor)
	assert.ErrorIs(t, err, ErrAdvanceFailed)
	assert.ErrorIs(t, err, failure)
	assert.True(t, next.IsAbsent())
	store.AssertNumberOfCalls(t, "CreateTask", 1)
}

func TestAdvanceSeries_Preconditions(t *testing.T) {
	ctx := context.Background()
	anchor := storage.NewMockAnchor("anchor", "Standup", date(2024, 1, 1), recurrence.MustRule(recurrence.Daily{Interval: 1}))

	tests := []struct {
		name    string
		task    storage.Task
		wantErr error
	}{
		{name: "todo", task: anchor, wantErr: ErrNotCompleted},
		{name: "cancelled", task: func() storage.Task { c := anchor; c.Status = storage.StatusCancelled; return c }(), wantErr: ErrNotCompleted},
		{name: "not recurring", task: storage.Task{ID: "plain", Title: "Plain", Status: storage.StatusCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(storage.MockTaskStore)
			next, err := NewAdvancer(store).AdvanceSeries(ctx, tt.task)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, next.IsAbsent())
			store.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
		})
	}
}

func TestAdvanceSeries_MissingAnchor(t *testing.T) {
	ctx := context.Background()
	store := new(storage.MockTaskStore)
	store.On("GetTask", ctx, "gone").Return(nil, &storage.Error{Type: storage.ErrNotFound, Message: "task not found"})

	followOn := storage.Task{ID: "x", Title: "Orphan", Status: storage.StatusCompleted, ParentTaskID: "gone", DueDate: date(2024, 1, 2)}
	_, err := NewAdvancer(store).AdvanceSeries(ctx, followOn)
	assert.True(t, storage.IsErrorType(err, storage.ErrNotFound))
}

func TestAdvanceSeries_ChainThroughMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	due := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := recurrence.MustRule(recurrence.Weekly{Interval: 1}, recurrence.WithMaxOccurrences(3))

	_, err := store.CreateTask(ctx, storage.NewMockAnchor("anchor", "Review", due, rule))
	require.NoError(t, err)

	advancer := NewAdvancer(store, clock(due))
	current, err := store.GetTask(ctx, "anchor")
	require.NoError(t, err)

	var dues []time.Time
	for i := 0; i < 5; i++ {
		current.Status = storage.StatusCompleted
		next, err := advancer.AdvanceSeries(ctx, *current)
		require.NoError(t, err)
		task, ok := next.Get()
		if !ok {
			break
		}
		dues = append(dues, task.DueDate)
		current, err = store.GetTask(ctx, task.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, []time.Time{due.AddDate(0, 0, 7), due.AddDate(0, 0, 14)}, dues)

	// Completing the same occurrence twice hits the store's day guard
	repeat, err := store.GetTask(ctx, current.ParentTaskID)
	require.NoError(t, err)
	repeat.Status = storage.StatusCompleted
	_, err = advancer.AdvanceSeries(ctx, *repeat)
	assert.ErrorIs(t, err, ErrAdvanceFailed)
	assert.True(t, storage.IsErrorType(err, storage.ErrConflict))
}

func TestAdvanceSeries_MonthlyCapThroughMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	due := date(2030, 1, 1)
	rule := recurrence.MustRule(recurrence.Monthly{Interval: 1}, recurrence.WithMaxOccurrences(3))

	_, err := store.CreateTask(ctx, storage.NewMockAnchor("rent", "Rent", due, rule))
	require.NoError(t, err)

	advancer := NewAdvancer(store, clock(due))
	current, err := store.GetTask(ctx, "rent")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		current.Status = storage.StatusCompleted
		next, err := advancer.AdvanceSeries(ctx, *current)
		require.NoError(t, err)
		task, ok := next.Get()
		if !ok {
			break
		}
		current, err = store.GetTask(ctx, task.ID)
		require.NoError(t, err)
	}

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.True(t, recurrence.IsOccurrence(due, task.DueDate, rule), "persisted %s", task.DueDate.Format(recurrence.DateLayout))
	}
	assert.Equal(t, date(2030, 3, 1), tasks[2].DueDate)
}
