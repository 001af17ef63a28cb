// Package tui is the terminal timeline viewer. The simulator is driven from
// bubbletea tick messages, so ticks and key presses are handled one at a time
// on the program's event loop.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/service"
	"github.com/rcliao/timeline/internal/timeline"
)

const (
	DefaultTickInterval = time.Second
	nameWidth           = 22
)

// Simulations loads and persists a project's playback.
type Simulations interface {
	Load(projectID string) (*service.Playback, error)
	Save(projectID string, sim *timeline.Simulator) error
}

// Tasks applies the edits the viewer offers.
type Tasks interface {
	Move(projectID, id string, index int) ([]*domain.Task, error)
	Update(projectID, id string, upd domain.TaskUpdate) (*domain.Task, error)
}

type Options struct {
	ProjectID    string
	Simulations  Simulations
	Tasks        Tasks
	Preferences  service.PreferenceStorage
	TickInterval time.Duration
	Clock        service.Clock
	Logger       *slog.Logger
}

type tickMsg struct {
	at time.Time
	// gen ties a tick to the run that scheduled it; ticks of an earlier run
	// are dropped.
	gen int
}

type Model struct {
	opts     Options
	playback *service.Playback
	selected int
	gen      int
	dark     bool

	keys   keyMap
	help   help.Model
	bar    progress.Model
	styles Styles
	width  int

	status   string
	err      error
	quitting bool
}

func New(opts Options) (*Model, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Logger = logging.OrDefault(opts.Logger)

	pb, err := opts.Simulations.Load(opts.ProjectID)
	if err != nil {
		return nil, err
	}
	prefs, err := opts.Preferences.GetPreferences()
	if err != nil {
		return nil, err
	}

	m := &Model{
		opts:     opts,
		playback: pb,
		dark:     prefs.DarkMode,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	m.applyTheme()
	return m, nil
}

func (m *Model) applyTheme() {
	m.styles = NewStyles(m.dark)
	width := 30
	if m.bar.Width > 0 {
		width = m.bar.Width
	}
	m.bar = progress.New(
		progress.WithSolidFill(string(m.styles.Palette.Bar)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

func (m *Model) Frame() timeline.Frame {
	return m.playback.Frame()
}

func (m *Model) Selected() int { return m.selected }
func (m *Model) Dark() bool    { return m.dark }
func (m *Model) Err() error    { return m.err }

func (m *Model) Init() tea.Cmd {
	if m.playback.Simulator.State() == timeline.Running {
		return m.tick()
	}
	return nil
}

func (m *Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.opts.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg{at: t, gen: gen}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = clampInt(msg.Width-nameWidth-24, 10, 60)
		return m, nil

	case tickMsg:
		return m, m.handleTick(msg)

	case tea.KeyMsg:
		m.err = nil
		m.status = ""
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	sim := m.playback.Simulator
	if msg.gen != m.gen || sim.State() != timeline.Running {
		return nil
	}
	sim.Tick(msg.at)
	if sim.State() == timeline.Running {
		return m.tick()
	}
	m.status = "Finished"
	m.save()
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sim := m.playback.Simulator

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		now := m.opts.Clock()
		m.gen++
		if sim.State() == timeline.Running {
			sim.Tick(now)
			sim.Stop()
			m.save()
			return m, nil
		}
		if err := sim.Start(now); err != nil {
			m.err = err
			return m, nil
		}
		m.save()
		return m, m.tick()

	case key.Matches(msg, m.keys.Reset):
		m.gen++
		sim.Reset()
		m.save()

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.playback.Timeline.Tasks)-1 {
			m.selected++
		}

	case key.Matches(msg, m.keys.MoveUp):
		m.move(-1)

	case key.Matches(msg, m.keys.MoveDown):
		m.move(1)

	case key.Matches(msg, m.keys.Longer):
		m.adjustDuration(1)

	case key.Matches(msg, m.keys.Shorter):
		m.adjustDuration(-1)

	case key.Matches(msg, m.keys.Theme):
		m.dark = !m.dark
		m.applyTheme()
		if err := m.opts.Preferences.SavePreferences(domain.Preferences{DarkMode: m.dark}); err != nil {
			m.err = err
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) selectedTask() *domain.Task {
	tasks := m.playback.Timeline.Tasks
	if m.selected < 0 || m.selected >= len(tasks) {
		return nil
	}
	return tasks[m.selected]
}

func (m *Model) move(delta int) {
	task := m.selectedTask()
	if task == nil {
		return
	}
	target := clampInt(m.selected+delta, 0, len(m.playback.Timeline.Tasks)-1)
	if target == m.selected {
		return
	}
	if _, err := m.opts.Tasks.Move(m.opts.ProjectID, task.ID, target); err != nil {
		m.err = err
		return
	}
	m.selected = target
	m.reload()
}

func (m *Model) adjustDuration(delta int) {
	task := m.selectedTask()
	if task == nil {
		return
	}
	duration := task.Duration + delta
	if duration < 1 {
		m.status = fmt.Sprintf("%s already lasts one day", task.Name)
		return
	}
	if _, err := m.opts.Tasks.Update(m.opts.ProjectID, task.ID, domain.TaskUpdate{Duration: &duration}); err != nil {
		m.err = err
		return
	}
	m.status = fmt.Sprintf("%s now lasts %d day(s)", task.Name, duration)
	m.reload()
}

// reload re-reads the timeline after an edit, keeping the simulated day.
func (m *Model) reload() {
	now := m.opts.Clock()
	day := m.playback.Simulator.Tick(now)
	m.save()

	pb, err := m.opts.Simulations.Load(m.opts.ProjectID)
	if err != nil {
		m.err = err
		return
	}
	pb.Simulator.Seek(day, now)
	m.playback = pb
	m.save()
}

func (m *Model) save() {
	if err := m.opts.Simulations.Save(m.opts.ProjectID, m.playback.Simulator); err != nil {
		m.opts.Logger.Error("failed to save simulation", "project", m.opts.ProjectID, "error", err)
		m.err = err
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	frame := m.Frame()
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("🗓  "+m.playback.Timeline.Project.Name) + "\n")

	state := m.styles.Status.Render("⏸ Stopped")
	if frame.State == timeline.Running {
		state = m.styles.Running.Render("▶ Running")
	}
	sb.WriteString(fmt.Sprintf("%s  %s\n", state,
		m.styles.Status.Render(fmt.Sprintf("Day %.1f / %d", frame.Day, frame.Total))))
	sb.WriteString(fmt.Sprintf("%s %3.0f%%\n\n", m.bar.ViewAs(frame.Overall), frame.Overall*100))

	if len(frame.Tasks) == 0 {
		sb.WriteString(m.styles.Subtle.Render("No tasks yet. Add some with `timeline task add`.") + "\n")
	}
	for i, tf := range frame.Tasks {
		sb.WriteString(m.renderTask(i, tf) + "\n")
	}

	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(m.styles.Error.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		sb.WriteString(m.styles.Subtle.Render(m.status) + "\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m *Model) renderTask(i int, tf timeline.TaskFrame) string {
	cursor := "  "
	if i == m.selected {
		cursor = "› "
	}

	name := fmt.Sprintf("%-*s", nameWidth, truncate(tf.Name, nameWidth))
	switch {
	case tf.Progress >= 1:
		name = m.styles.Done.Render(name)
	case tf.Critical:
		name = m.styles.Critical.Render(name)
	default:
		name = m.styles.Task.Render(name)
	}

	var detail string
	if !tf.Resolved {
		detail = m.styles.Warning.Render("no start day (missing dependency)")
	} else {
		detail = fmt.Sprintf("%s %3.0f%%  %s", m.bar.ViewAs(tf.Progress), tf.Progress*100,
			m.styles.Subtle.Render(fmt.Sprintf("day %d-%d", tf.Start, tf.Finish)))
	}

	line := cursor + name + " " + detail
	if i == m.selected {
		return m.styles.Selected.Render(line)
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run starts the viewer on the terminal and blocks until the user quits.
func Run(opts Options, programOpts ...tea.ProgramOption) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(m, programOpts...).Run(); err != nil {
		return fmt.Errorf("viewer error: %w", err)
	}
	return m.err
}
