package service

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/storage"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store       *storage.MemoryStorage
	projects    *ProjectService
	tasks       *TaskService
	schedules   *ScheduleService
	simulations *SimulationService
	summaries   *ProjectSummaryService
	project     *domain.Project
	logs        *bytes.Buffer
	now         time.Time
}

func newFixture(t *testing.T, policy schedule.Policy, removal domain.RemovalPolicy) *fixture {
	t.Helper()

	f := &fixture{
		store: storage.NewMemoryStorage(),
		logs:  &bytes.Buffer{},
		now:   epoch,
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f.projects = NewProjectService(f.store)
	f.tasks = NewTaskService(f.store, f.store, TaskOptions{Policy: policy, Removal: removal, Logger: logger})
	f.schedules = NewScheduleService(f.store, f.store, policy, logger)
	f.simulations = NewSimulationService(f.store, f.schedules, 40*time.Second, logger).
		WithClock(func() time.Time { return f.now })
	f.summaries = NewProjectSummaryService(f.simulations)

	project, err := f.projects.Create("Kitchen", "")
	require.NoError(t, err)
	f.project = project
	return f
}

// diamond adds A(1), B(2, after A), C(1, after A), D(1, after B and C) as
// task-1 to task-4.
func (f *fixture) diamond(t *testing.T) {
	t.Helper()
	inputs := []TaskInput{
		{Name: "A", Duration: 1},
		{Name: "B", Duration: 2, Dependencies: []string{"task-1"}},
		{Name: "C", Duration: 1, Dependencies: []string{"task-1"}},
		{Name: "D", Duration: 1, Dependencies: []string{"task-2", "task-3"}},
	}
	for _, in := range inputs {
		_, err := f.tasks.Add(f.project.ID, in)
		require.NoError(t, err)
	}
}

func (f *fixture) timeline(t *testing.T) *Timeline {
	t.Helper()
	tl, err := f.schedules.Project(f.project.ID)
	require.NoError(t, err)
	return tl
}

func startOf(t *testing.T, tl *Timeline, id string) int {
	t.Helper()
	start, err := tl.Schedule.Start(id)
	require.NoError(t, err, id)
	return start
}
