package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/service"
	"github.com/rcliao/timeline/internal/storage"
	"github.com/rcliao/timeline/internal/timeline"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	store   *storage.MemoryStorage
	tasks   *service.TaskService
	project *domain.Project
	now     time.Time
	model   *Model
}

// newHarness builds a viewer over A(1), B(2, after A), C(1, after A) and
// D(1, after B and C). The simulation period is 40s, one day every 10s.
func newHarness(t *testing.T, withTasks bool) *harness {
	t.Helper()
	h := &harness{store: storage.NewMemoryStorage(), now: epoch}
	clock := func() time.Time { return h.now }
	logger := logging.Discard()

	projects := service.NewProjectService(h.store)
	h.tasks = service.NewTaskService(h.store, h.store, service.TaskOptions{Policy: schedule.PolicyStrict, Logger: logger})
	schedules := service.NewScheduleService(h.store, h.store, schedule.PolicyStrict, logger)
	simulations := service.NewSimulationService(h.store, schedules, 40*time.Second, logger).WithClock(clock)

	project, err := projects.Create("Kitchen", "")
	require.NoError(t, err)
	h.project = project

	if withTasks {
		for _, in := range []service.TaskInput{
			{Name: "A", Duration: 1},
			{Name: "B", Duration: 2, Dependencies: []string{"task-1"}},
			{Name: "C", Duration: 1, Dependencies: []string{"task-1"}},
			{Name: "D", Duration: 1, Dependencies: []string{"task-2", "task-3"}},
		} {
			_, err := h.tasks.Add(project.ID, in)
			require.NoError(t, err)
		}
	}

	m, err := New(Options{
		ProjectID:   project.ID,
		Simulations: simulations,
		Tasks:       h.tasks,
		Preferences: h.store,
		Clock:       clock,
		Logger:      logger,
	})
	require.NoError(t, err)
	h.model = m
	return h
}

func (h *harness) press(t *testing.T, keys ...tea.KeyMsg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = h.model.Update(k)
	}
	return cmd
}

func (h *harness) tickAt(d time.Duration) tea.Cmd {
	h.now = epoch.Add(d)
	_, cmd := h.model.Update(tickMsg{at: h.now, gen: h.model.gen})
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace}

func TestModel_PlayPause(t *testing.T) {
	h := newHarness(t, true)
	assert.Nil(t, h.model.Init(), "stopped viewer does not tick")

	cmd := h.press(t, space)
	require.NotNil(t, cmd)
	assert.Equal(t, timeline.Running, h.model.Frame().State)

	require.NotNil(t, h.tickAt(20*time.Second))
	frame := h.model.Frame()
	assert.InDelta(t, 2.0, frame.Day, 1e-9)
	assert.InDelta(t, 1.0, frame.Tasks[0].Progress, 1e-9)
	assert.InDelta(t, 0.5, frame.Tasks[1].Progress, 1e-9)

	h.now = epoch.Add(25 * time.Second)
	assert.Nil(t, h.press(t, space))
	assert.Equal(t, timeline.Stopped, h.model.Frame().State)
	assert.InDelta(t, 2.5, h.model.Frame().Day, 1e-9)

	state, err := h.store.GetSimulation(h.project.ID)
	require.NoError(t, err)
	assert.False(t, state.Running)
	assert.InDelta(t, 2.5, state.CurrentDay, 1e-9)
}

func TestModel_StaleTicksAreDropped(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, space)
	stale := h.model.gen

	// pause and resume: the first run's tick chain must not drive the clock
	h.press(t, space, space)
	h.now = epoch.Add(30 * time.Second)
	_, cmd := h.model.Update(tickMsg{at: h.now, gen: stale})
	assert.Nil(t, cmd)
	assert.InDelta(t, 0.0, h.model.Frame().Day, 1e-9)
}

func TestModel_FinishStopsAndPersists(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, space)

	assert.Nil(t, h.tickAt(time.Minute))
	frame := h.model.Frame()
	assert.Equal(t, timeline.Stopped, frame.State)
	assert.Equal(t, 4.0, frame.Day)
	assert.Equal(t, 1.0, frame.Overall)

	state, err := h.store.GetSimulation(h.project.ID)
	require.NoError(t, err)
	assert.False(t, state.Running)
	assert.Nil(t, state.StartedAt)
	assert.Contains(t, h.model.View(), "Finished")
}

func TestModel_Reset(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, space)
	h.tickAt(10 * time.Second)

	h.press(t, runes("r"))
	frame := h.model.Frame()
	assert.Equal(t, timeline.Stopped, frame.State)
	assert.Equal(t, 0.0, frame.Day)
}

func TestModel_EmptyProjectCannotStart(t *testing.T) {
	h := newHarness(t, false)

	assert.Nil(t, h.press(t, space))
	assert.ErrorIs(t, h.model.Err(), timeline.ErrEmptyTimeline)
	assert.Contains(t, h.model.View(), "No tasks yet")
}

func TestModel_Selection(t *testing.T) {
	h := newHarness(t, true)

	h.press(t, runes("k"))
	assert.Equal(t, 0, h.model.Selected())

	h.press(t, runes("j"), runes("j"), runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 3, h.model.Selected())

	h.press(t, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, h.model.Selected())
}

func TestModel_MoveTask(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, runes("j"), runes("j"), runes("j"))

	h.press(t, runes("K"))
	require.NoError(t, h.model.Err())
	assert.Equal(t, 2, h.model.Selected())

	frame := h.model.Frame()
	ids := make([]string, len(frame.Tasks))
	for i, tf := range frame.Tasks {
		ids[i] = tf.ID
	}
	assert.Equal(t, []string{"task-1", "task-2", "task-4", "task-3"}, ids)

	// display order does not change the schedule
	assert.Equal(t, 4, frame.Total)
}

func TestModel_AdjustDurationKeepsDay(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, space)
	h.tickAt(20 * time.Second)
	h.press(t, space)

	// lengthen B from 2 to 3 days: D moves to day 4, total 5
	h.press(t, runes("j"), runes("+"))
	require.NoError(t, h.model.Err())

	frame := h.model.Frame()
	assert.Equal(t, 5, frame.Total)
	assert.InDelta(t, 2.0, frame.Day, 1e-9)
	assert.Equal(t, 4, frame.Tasks[3].Start)

	task, err := h.tasks.Get(h.project.ID, "task-2")
	require.NoError(t, err)
	assert.Equal(t, 3, task.Duration)

	// A already lasts one day
	h.press(t, runes("k"), runes("-"))
	task, err = h.tasks.Get(h.project.ID, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, task.Duration)
	assert.Contains(t, h.model.View(), "A already lasts one day")
}

func TestModel_ThemeIsSaved(t *testing.T) {
	h := newHarness(t, true)
	assert.False(t, h.model.Dark())

	h.press(t, runes("t"))
	assert.True(t, h.model.Dark())
	prefs, err := h.store.GetPreferences()
	require.NoError(t, err)
	assert.True(t, prefs.DarkMode)
}

func TestModel_View(t *testing.T) {
	h := newHarness(t, true)
	h.model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := h.model.View()
	assert.Contains(t, view, "Kitchen")
	assert.Contains(t, view, "Stopped")
	assert.Contains(t, view, "Day 0.0 / 4")
	assert.Contains(t, view, "day 1-3")

	h.press(t, space)
	assert.Contains(t, h.model.View(), "Running")

	cmd := h.press(t, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, h.model.View())
}
