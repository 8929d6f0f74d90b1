// taskrecur prints a window of a task calendar, expanding recurring series
// into virtual occurrences. Tasks come from a built-in demo set, an
// iCalendar file of VTODOs or a JSONC task list.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/cyp0633/taskrecur/calendar"
	"github.com/cyp0633/taskrecur/internal/agenda"
	"github.com/cyp0633/taskrecur/materialize"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/reminder"
	"github.com/cyp0633/taskrecur/series"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/cyp0633/taskrecur/storage/memory"
)

type options struct {
	from       string
	days       int
	format     string
	complete   []string
	importPath string
	configPath string
	reminders  bool
	verbose    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("taskrecur", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.from, "from", "", "first day of the window, YYYY-MM-DD (default: today)")
	flagSet.IntVar(&opts.days, "days", 14, "number of days in the window")
	flagSet.StringVar(&opts.format, "format", "text", "output format: text, xml or ics")
	flagSet.StringArrayVar(&opts.complete, "complete", nil, "complete the open occurrence of the series with this title (repeatable)")
	flagSet.StringVar(&opts.importPath, "import", "", "load tasks from an iCalendar or JSONC file instead of the demo set")
	flagSet.StringVar(&opts.configPath, "config", "", "engine configuration YAML file")
	flagSet.BoolVar(&opts.reminders, "reminders", false, "print overdue and due-soon reminders to stderr")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	start, end, err := window(opts.from, opts.days, time.Now())
	if err != nil {
		return err
	}

	config := recurrence.DefaultEngineConfig
	if opts.configPath != "" {
		if config, err = recurrence.LoadEngineConfigFile(opts.configPath); err != nil {
			return err
		}
	}
	engine := recurrence.NewEngineWithConfig(config, recurrence.WithLogger(logger))
	defer engine.Close()

	ctx := context.Background()
	store := memory.New(memory.WithLogger(logger))
	if opts.importPath != "" {
		err = importTasks(ctx, store, opts.importPath)
	} else {
		err = seed(ctx, store, start)
	}
	if err != nil {
		return err
	}

	advancer := series.NewAdvancer(store, series.WithLogger(logger))
	for _, title := range opts.complete {
		if err := completeSeries(ctx, store, advancer, title); err != nil {
			return err
		}
	}

	view := calendar.NewView(store,
		materialize.NewService(store, materialize.WithEngine(engine), materialize.WithLogger(logger)),
		calendar.WithLogger(logger))
	days, err := view.Window(ctx, start, end)
	if err != nil {
		return err
	}

	if opts.reminders {
		tracker := reminder.NewTracker(reminder.WithLogger(logger))
		for _, r := range tracker.Check(days) {
			fmt.Fprintf(stderr, "%s: %s (due %s)\n", r.Kind, r.Title, r.DueDate.Format("2006-01-02 15:04"))
		}
	}

	switch strings.ToLower(opts.format) {
	case "text":
		return agenda.FromDays(days, start, end).WriteText(stdout)
	case "xml":
		return agenda.FromDays(days, start, end).WriteXML(stdout)
	case "ics":
		return agenda.WriteICS(stdout, days)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}

// window resolves the closed day range starting at from, or today when empty
func window(from string, days int, now time.Time) (time.Time, time.Time, error) {
	if days < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("--days must be at least 1, got %d", days)
	}
	start := recurrence.DayOf(now)
	if from != "" {
		var err error
		if start, err = time.ParseInLocation(recurrence.DateLayout, from, time.Local); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	return start, start.AddDate(0, 0, days-1), nil
}

// importTasks loads an iCalendar file, or a JSONC task list for .json and .jsonc files
func importTasks(ctx context.Context, store *memory.Store, path string) error {
	var tasks []storage.Task
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		var err error
		if tasks, err = storage.ReadTasksFile(path); err != nil {
			return err
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if tasks, err = storage.ICSToTasks(string(data)); err != nil {
			return err
		}
	}
	for _, task := range tasks {
		if _, err := store.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("failed to import %q: %w", task.Title, err)
		}
	}
	return nil
}

// seed fills the store with a small team's recurring work around start
func seed(ctx context.Context, store *memory.Store, start time.Time) error {
	at := func(days, hour, minute int) time.Time {
		return start.AddDate(0, 0, days).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	tasks := []storage.Task{
		anchor("Team standup", "ana", at(0, 9, 30), recurrence.Daily{Interval: 1}),
		anchor("Sprint review", "ben", at(4, 15, 0), recurrence.Weekly{Interval: 2}),
		anchor("Pay office rent", "carla", at(-20, 12, 0), recurrence.Monthly{Interval: 1}),
		anchor("Rotate on-call", "dev", at(1, 10, 0), recurrence.Weekly{Interval: 1}, recurrence.WithMaxOccurrences(4)),
		{Title: "Ship release notes", Assignee: "ana", Priority: storage.PriorityHigh, DueDate: at(2, 17, 0)},
	}
	for _, task := range tasks {
		if _, err := store.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("failed to seed %q: %w", task.Title, err)
		}
	}
	return nil
}

func anchor(title, assignee string, due time.Time, pattern recurrence.Pattern, opts ...recurrence.RuleOption) storage.Task {
	rule := recurrence.MustRule(pattern, opts...)
	return storage.Task{
		Title:       title,
		Assignee:    assignee,
		Status:      storage.StatusTodo,
		Priority:    storage.PriorityMedium,
		DueDate:     due,
		IsRecurring: true,
		Recurrence:  &rule,
	}
}

// completeSeries completes the latest open occurrence of the series titled
// title and advances it
func completeSeries(ctx context.Context, store *memory.Store, advancer *series.Advancer, title string) error {
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		return err
	}

	var open *storage.Task
	for i := range tasks {
		t := &tasks[i]
		if !strings.EqualFold(t.Title, title) || t.SeriesID() == "" || t.Status.IsClosed() {
			continue
		}
		if open == nil || t.DueDate.After(open.DueDate) {
			open = t
		}
	}
	if open == nil {
		return fmt.Errorf("no open occurrence of %q", title)
	}

	now := time.Now()
	open.Status = storage.StatusCompleted
	open.CompletedAt = &now
	if err := store.UpdateTask(ctx, *open); err != nil {
		return err
	}

	_, err = advancer.AdvanceSeries(ctx, *open)
	return err
}
