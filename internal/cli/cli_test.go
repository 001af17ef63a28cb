package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/timeline"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// runner executes command lines against one data directory. Every call builds
// a fresh command tree, so state only survives through storage.
type runner struct {
	t     *testing.T
	dir   string
	now   time.Time
	clock func() time.Time
	ctx   context.Context
	stdin string
}

func newRunner(t *testing.T, config string) *runner {
	t.Helper()
	r := &runner{t: t, dir: filepath.Join(t.TempDir(), ".timeline"), now: epoch, ctx: context.Background()}
	r.clock = func() time.Time { return r.now }
	if config != "" {
		require.NoError(t, os.MkdirAll(r.dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(r.dir, "config.yaml"), []byte(config), 0644))
	}
	return r
}

func (r *runner) run(args ...string) (string, error) {
	r.t.Helper()
	a := newApp()
	a.now = r.clock
	defer a.close()

	root := a.rootCmd()
	var out, errOut bytes.Buffer
	root.SetArgs(append([]string{"--data-dir", r.dir}, args...))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(r.stdin))
	err := root.ExecuteContext(r.ctx)
	return out.String(), err
}

func (r *runner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run(args...)
	require.NoError(r.t, err, strings.Join(args, " "))
	return out
}

func (r *runner) diamond() {
	r.t.Helper()
	r.mustRun("project", "create", "Kitchen")
	r.mustRun("task", "add", "A", "-d", "1")
	r.mustRun("task", "add", "B", "-d", "2", "--after", "A")
	r.mustRun("task", "add", "C", "--after", "1")
	r.mustRun("task", "add", "D", "--after", "B,C")
}

type scheduleJSON struct {
	TotalDuration int      `json:"totalDuration"`
	CriticalPath  []string `json:"criticalPath"`
	Tasks         []struct {
		ID       string `json:"id"`
		Start    *int   `json:"start"`
		Critical bool   `json:"critical"`
	} `json:"tasks"`
}

func (r *runner) schedule() scheduleJSON {
	r.t.Helper()
	var view scheduleJSON
	require.NoError(r.t, json.Unmarshal([]byte(r.mustRun("schedule", "--json")), &view))
	return view
}

func TestInit(t *testing.T) {
	r := newRunner(t, "")

	out := r.mustRun("init")
	assert.Contains(t, out, "Initialized timeline in "+r.dir)
	assert.FileExists(t, filepath.Join(r.dir, "config.yaml"))

	_, err := r.run("init")
	assert.ErrorContains(t, err, "already initialized")

	r.mustRun("init", "--force")
}

func TestProjectCreateWithTemplate(t *testing.T) {
	r := newRunner(t, "")

	out := r.mustRun("project", "create", "Kitchen", "--template", "renovation")
	assert.Contains(t, out, "Created project Kitchen")
	assert.Contains(t, out, "Added 11 tasks from template renovation")

	out = r.mustRun("schedule")
	assert.Contains(t, out, "Kitchen: 27 day(s)")
	assert.Contains(t, out, "Critical path: task-1 → task-5 → task-6 → task-7 → task-8 → task-11")

	view := r.schedule()
	assert.Equal(t, 27, view.TotalDuration)
	require.Len(t, view.Tasks, 11)
	require.NotNil(t, view.Tasks[6].Start)
	assert.Equal(t, 5, *view.Tasks[6].Start, "painting starts after the concrete work")

	_, err := r.run("project", "create", "Garage", "--template", "boat")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var projects []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(r.mustRun("project", "list", "--json")), &projects))
	assert.Len(t, projects, 1, "an unknown template stores no project")
}

func TestProjectCommands(t *testing.T) {
	r := newRunner(t, "")

	_, err := r.run("task", "list")
	assert.ErrorIs(t, err, domain.ErrNoCurrentProject)

	r.mustRun("project", "create", "Kitchen")
	r.mustRun("project", "create", "Bathroom", "-d", "Upstairs")

	out := r.mustRun("project", "list")
	assert.Contains(t, out, "Kitchen")
	assert.Contains(t, out, "Upstairs")

	out = r.mustRun("project", "use", "bathroom")
	assert.Contains(t, out, "Now using project Bathroom")

	out = r.mustRun("project", "rename", "Master Bath")
	assert.Contains(t, out, "Renamed Bathroom to Master Bath")

	r.mustRun("task", "add", "Tiles", "-d", "2", "--project", "Kitchen")
	out = r.mustRun("project", "show", "--project", "Kitchen")
	assert.Contains(t, out, "Tasks:          1 (1 not started, 0 in progress, 0 completed)")
	assert.Contains(t, out, "Total duration: 2 days")

	_, err = r.run("project", "use", "Garage")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskCommands(t *testing.T) {
	r := newRunner(t, "")
	r.diamond()

	view := r.schedule()
	assert.Equal(t, 4, view.TotalDuration)
	assert.Equal(t, []string{"task-1", "task-2", "task-4"}, view.CriticalPath)
	starts := map[string]int{}
	for _, st := range view.Tasks {
		require.NotNil(t, st.Start, st.ID)
		starts[st.ID] = *st.Start
	}
	assert.Equal(t, map[string]int{"task-1": 0, "task-2": 1, "task-3": 1, "task-4": 3}, starts)

	out := r.mustRun("task", "show", "B")
	assert.Contains(t, out, "day 1 to 3, slack 0 (critical)")
	out = r.mustRun("task", "show", "C")
	assert.Contains(t, out, "day 1 to 2, slack 1")

	_, err := r.run("task", "edit", "A", "--after", "D")
	assert.ErrorIs(t, err, schedule.ErrCycle)

	_, err = r.run("task", "edit", "A")
	assert.ErrorContains(t, err, "nothing to change")

	_, err = r.run("task", "add", "E", "-d", "0")
	assert.ErrorIs(t, err, domain.ErrInvalidTask)

	_, err = r.run("task", "rm", "A")
	assert.ErrorIs(t, err, domain.ErrHasDependents)

	out = r.mustRun("task", "edit", "B", "--duration", "5", "--status", "In Progress")
	assert.Contains(t, out, "Updated task-2 B")
	assert.Equal(t, 7, r.schedule().TotalDuration)

	out = r.mustRun("task", "move", "D", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "task-4"), lines[1])

	out = r.mustRun("task", "list", "--status", "in-progress")
	assert.Contains(t, out, "task-2")
	assert.NotContains(t, out, "task-3")

	out = r.mustRun("task", "rm", "D")
	assert.Contains(t, out, "Removed task-4 D")
	out = r.mustRun("task", "add", "E")
	assert.Contains(t, out, "Added task-5 E", "ids are never reused")

	out = r.mustRun("task", "edit", "E", "--category", "painting")
	assert.Contains(t, out, "Updated task-5 E")
	out = r.mustRun("task", "list", "--by-category")
	assert.Contains(t, out, "Painting (1)")
}

func TestTaskRemoveDetach(t *testing.T) {
	r := newRunner(t, "schedule:\n  removal: detach\n")
	r.diamond()

	out := r.mustRun("task", "rm", "A")
	assert.Contains(t, out, "Detached: task-2, task-3")
	assert.Equal(t, 3, r.schedule().TotalDuration)
}

func TestTaskRemoveOrphanLenient(t *testing.T) {
	r := newRunner(t, "schedule:\n  removal: orphan\n  missing_dependency: lenient\n")
	r.diamond()

	out := r.mustRun("task", "rm", "A")
	assert.Contains(t, out, "Left without a start day: task-2, task-3")

	view := r.schedule()
	assert.Equal(t, 0, view.TotalDuration)
	for _, st := range view.Tasks {
		assert.Nil(t, st.Start, st.ID)
	}
	assert.Contains(t, r.mustRun("schedule"), "start day cannot be derived")
}

func TestSimCommands(t *testing.T) {
	r := newRunner(t, "simulation:\n  period: 40s\n")

	r.mustRun("project", "create", "Kitchen")
	_, err := r.run("sim", "start")
	assert.ErrorIs(t, err, timeline.ErrEmptyTimeline)

	r.mustRun("task", "add", "A", "-d", "1")
	r.mustRun("task", "add", "B", "-d", "2", "--after", "A")
	r.mustRun("task", "add", "C", "--after", "1")
	r.mustRun("task", "add", "D", "--after", "B,C")

	out := r.mustRun("sim", "start")
	assert.Contains(t, out, "▶ Day 0.0 of 4")

	// one day every 10s
	r.now = epoch.Add(20 * time.Second)
	out = r.mustRun("sim", "status")
	assert.Contains(t, out, "▶ Day 2.0 of 4")
	assert.Contains(t, out, "day 1-3")

	r.now = epoch.Add(25 * time.Second)
	out = r.mustRun("sim", "stop")
	assert.Contains(t, out, "⏸ Day 2.5 of 4")

	r.now = epoch.Add(time.Hour)
	var frame struct {
		Day   float64 `json:"currentDay"`
		State string  `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.mustRun("sim", "status", "--json")), &frame))
	assert.Equal(t, 2.5, frame.Day)
	assert.Equal(t, "stopped", frame.State)

	out = r.mustRun("sim", "seek", "10")
	assert.Contains(t, out, "Day 4.0 of 4")

	out = r.mustRun("sim", "reset")
	assert.Contains(t, out, "Day 0.0 of 4")

	_, err = r.run("sim", "seek", "soon")
	assert.ErrorContains(t, err, "day must be a number")
}

func TestPlayRunsToTheEnd(t *testing.T) {
	r := newRunner(t, "simulation:\n  period: 40ms\n  tick_interval: 2ms\n")
	r.clock = time.Now
	r.diamond()

	out := r.mustRun("play")
	assert.Contains(t, out, "Day 0.0 of 4")
	assert.Contains(t, out, "🏁 Finished on day 4")

	out = r.mustRun("sim", "status")
	assert.Contains(t, out, "⏸ Day 4.0 of 4")
}

func TestPlayPausesOnCancel(t *testing.T) {
	r := newRunner(t, "simulation:\n  period: 1h\n  tick_interval: 1h\n")
	r.diamond()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.ctx = ctx

	out := r.mustRun("play", "--from", "1")
	assert.Contains(t, out, "Paused at day 1.0")

	r.ctx = context.Background()
	out = r.mustRun("sim", "status")
	assert.Contains(t, out, "⏸ Day 1.0 of 4")
}

func TestExportImport(t *testing.T) {
	r := newRunner(t, "")
	r.mustRun("project", "create", "Kitchen", "--template", "renovation")

	path := filepath.Join(t.TempDir(), "kitchen.yaml")
	r.mustRun("export", "-o", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Kitchen")
	assert.Contains(t, string(data), "- id: task-7")

	out := r.mustRun("import", path, "--new")
	assert.Contains(t, out, "Imported 11 tasks into Kitchen")

	var projects []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(r.mustRun("project", "list", "--json")), &projects))
	assert.Len(t, projects, 2)

	// replacing keeps the plan's ids
	r.stdin = "title: Small\ntasks:\n  - id: task-1\n    name: Demolition\n    duration: 2\n  - id: task-2\n    name: Cleanup\n    duration: 1\n    after: [task-1]\n"
	out = r.mustRun("import", "-", "--replace")
	assert.Contains(t, out, "Imported 2 tasks into Kitchen")
	assert.Equal(t, 3, r.schedule().TotalDuration)

	// a cyclic plan stores nothing
	r.stdin = "title: Loop\ntasks:\n  - id: task-8\n    name: X\n    duration: 1\n    after: [task-9]\n  - id: task-9\n    name: Y\n    duration: 1\n    after: [task-8]\n"
	_, err = r.run("import", "-")
	assert.ErrorIs(t, err, schedule.ErrCycle)
	assert.Len(t, r.schedule().Tasks, 2)
}

func TestPrefs(t *testing.T) {
	r := newRunner(t, "")

	assert.Contains(t, r.mustRun("prefs"), "dark-mode: off")
	assert.Contains(t, r.mustRun("prefs", "dark-mode", "on"), "dark-mode: on")
	assert.Contains(t, r.mustRun("prefs", "dark-mode"), "dark-mode: on")

	_, err := r.run("prefs", "dark-mode", "maybe")
	assert.ErrorContains(t, err, "expected on or off")
}

func TestSQLiteBackend(t *testing.T) {
	r := newRunner(t, "storage:\n  backend: sqlite\n")
	r.diamond()

	assert.FileExists(t, filepath.Join(r.dir, "timeline.db"))
	assert.Equal(t, 4, r.schedule().TotalDuration)
}

func TestShell(t *testing.T) {
	r := newRunner(t, "")
	r.stdin = strings.Join([]string{
		`timeline.project.create {"name":"Kitchen","template":"renovation"}`,
		`timeline.task.get {"task":"paint"}`,
		`timeline.task.get {"task":`,
		`timeline.nope`,
		`help`,
		`quit`,
	}, "\n") + "\n"

	out := r.mustRun("shell")
	assert.Contains(t, out, `"name": "Kitchen"`)
	assert.Contains(t, out, `"id": "task-7"`)
	assert.Contains(t, out, "Error: Invalid JSON parameters")
	assert.Contains(t, out, "Error: unknown method: timeline.nope")
	assert.Contains(t, out, "timeline.sim.seek")
	assert.Contains(t, out, "Goodbye!")
}

func TestServe(t *testing.T) {
	r := newRunner(t, "")
	r.stdin = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	out := r.mustRun("serve")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"protocolVersion"`)
	assert.Contains(t, lines[1], "timeline_schedule")
}
