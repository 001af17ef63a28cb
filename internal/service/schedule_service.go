package service

import (
	"fmt"
	"log/slog"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/timeline"
)

// Timeline is a project's tasks in display order together with their schedule.
type Timeline struct {
	Project  *domain.Project
	Tasks    []*domain.Task
	Schedule *schedule.Schedule
}

// Items lists the tasks in display order for frame building.
func (t *Timeline) Items() []timeline.Item {
	items := make([]timeline.Item, len(t.Tasks))
	for i, task := range t.Tasks {
		items[i] = timeline.Item{ID: task.ID, Name: task.Name}
	}
	return items
}

func (t *Timeline) Task(id string) *domain.Task {
	for _, task := range t.Tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

// ScheduledTask is a task with its derived days. Start, Finish and Slack are
// nil for a task whose start cannot be derived.
type ScheduledTask struct {
	*domain.Task
	Start    *int `json:"start,omitempty"`
	Finish   *int `json:"finish,omitempty"`
	Slack    *int `json:"slack,omitempty"`
	Critical bool `json:"critical"`
}

// TimelineView is the serializable form of a Timeline.
type TimelineView struct {
	Project       *domain.Project       `json:"project"`
	TotalDuration int                   `json:"totalDuration"`
	CriticalPath  []string              `json:"criticalPath"`
	Tasks         []ScheduledTask       `json:"tasks"`
	Unresolved    []schedule.Unresolved `json:"unresolved,omitempty"`
}

func (t *Timeline) View() TimelineView {
	view := TimelineView{
		Project:       t.Project,
		TotalDuration: t.Schedule.TotalDuration(),
		CriticalPath:  t.Schedule.CriticalPath(),
		Tasks:         make([]ScheduledTask, 0, len(t.Tasks)),
		Unresolved:    t.Schedule.Unresolved(),
	}
	for _, task := range t.Tasks {
		st := ScheduledTask{Task: task, Critical: t.Schedule.IsCritical(task.ID)}
		if t.Schedule.Resolved(task.ID) {
			start, _ := t.Schedule.Start(task.ID)
			finish, _ := t.Schedule.Finish(task.ID)
			slack, _ := t.Schedule.Slack(task.ID)
			st.Start, st.Finish, st.Slack = &start, &finish, &slack
		}
		view.Tasks = append(view.Tasks, st)
	}
	return view
}

// Nodes converts tasks to the scheduler's input, keeping their order.
func Nodes(tasks []*domain.Task) []schedule.Node {
	nodes := make([]schedule.Node, len(tasks))
	for i, t := range tasks {
		nodes[i] = schedule.Node{ID: t.ID, Duration: t.Duration, Dependencies: t.Dependencies}
	}
	return nodes
}

type ScheduleService struct {
	tasks    TaskStorage
	projects ProjectStorage
	policy   schedule.Policy
	logger   *slog.Logger
}

func NewScheduleService(tasks TaskStorage, projects ProjectStorage, policy schedule.Policy, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{
		tasks:    tasks,
		projects: projects,
		policy:   policy,
		logger:   logging.OrDefault(logger),
	}
}

func (s *ScheduleService) Policy() schedule.Policy {
	return s.policy
}

// Project loads the project's tasks and projects them onto days.
func (s *ScheduleService) Project(projectID string) (*Timeline, error) {
	project, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTasks(domain.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return nil, err
	}

	sched, err := schedule.Project(Nodes(tasks), s.policy)
	if err != nil {
		return nil, fmt.Errorf("schedule project %s: %w", project.Name, err)
	}
	warnUnresolved(s.logger, projectID, sched)

	return &Timeline{Project: project, Tasks: tasks, Schedule: sched}, nil
}

func warnUnresolved(logger *slog.Logger, projectID string, sched *schedule.Schedule) {
	for _, u := range sched.Unresolved() {
		logger.Warn("task has no start day",
			"project", projectID,
			"task", u.TaskID,
			"missing", u.Missing,
			"blocked_by", u.BlockedBy,
		)
	}
}
