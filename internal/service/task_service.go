package service

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/search"
)

type TaskStorage interface {
	CreateTask(task *domain.Task) error
	UpdateTask(task *domain.Task) error
	GetTask(projectID, id string) (*domain.Task, error)
	ListTasks(filter domain.TaskFilter) ([]*domain.Task, error)
	DeleteTask(projectID, id string) error
	ReplaceTasks(projectID string, tasks []*domain.Task) error
}

type TaskOptions struct {
	Policy  schedule.Policy
	Removal domain.RemovalPolicy
	Logger  *slog.Logger
}

// TaskService owns every edit of a project's task set. Each edit is checked
// against the whole graph before it is stored, so stored task sets never
// contain a cycle and, under the strict policy, never a dangling reference.
type TaskService struct {
	storage  TaskStorage
	projects ProjectStorage
	search   *search.HybridSearch
	policy   schedule.Policy
	removal  domain.RemovalPolicy
	logger   *slog.Logger

	// serializes read-modify-write of task sets
	mu sync.Mutex
}

func NewTaskService(storage TaskStorage, projects ProjectStorage, opts TaskOptions) *TaskService {
	removal := opts.Removal
	if removal == "" {
		removal = domain.RemovalReject
	}
	return &TaskService{
		storage:  storage,
		projects: projects,
		search:   search.NewHybridSearch(storage),
		policy:   opts.Policy,
		removal:  removal,
		logger:   logging.OrDefault(opts.Logger),
	}
}

// TaskInput describes a task to add. ID is normally empty and allocated from
// the project counter; imports pass the ids of their plan file.
type TaskInput struct {
	ID           string
	Name         string
	Duration     int
	Dependencies []string
	Category     domain.Category
	Status       domain.TaskStatus
}

type RemoveResult struct {
	Removed *domain.Task `json:"removed"`
	// Detached lists dependents whose dependency on the removed task was stripped
	Detached []string `json:"detached,omitempty"`
	// Orphaned lists dependents left pointing at the removed task
	Orphaned []string `json:"orphaned,omitempty"`
}

func (s *TaskService) Policy() schedule.Policy        { return s.policy }
func (s *TaskService) Removal() domain.RemovalPolicy { return s.removal }

func (s *TaskService) Add(projectID string, in TaskInput) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.list(projectID)
	if err != nil {
		return nil, err
	}

	task, err := s.newTask(project, tasks, in)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkGraph(projectID, append(tasks, task)); err != nil {
		return nil, err
	}

	if err := s.storage.CreateTask(task); err != nil {
		return nil, err
	}
	if err := s.projects.UpdateProject(project); err != nil {
		return nil, err
	}
	s.logger.Debug("task added", "project", projectID, "task", task.ID, "duration", task.Duration)
	return task, nil
}

// newTask builds and validates a task for project, allocating its id and
// appending it after tasks.
func (s *TaskService) newTask(project *domain.Project, tasks []*domain.Task, in TaskInput) (*domain.Task, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = project.AllocateTaskID()
	} else {
		for _, t := range tasks {
			if t.ID == id {
				return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrAlreadyExists)
			}
		}
		reserveTaskID(project, id)
	}

	task := domain.NewTask(project.ID, id, strings.TrimSpace(in.Name), in.Duration)
	task.Dependencies = append(task.Dependencies, in.Dependencies...)
	task.Category = in.Category
	if in.Status != "" {
		task.Status = in.Status
	}
	task.Position = len(tasks)

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// reserveTaskID moves the project counter past an explicit task-N id so later
// allocations cannot collide with it.
func reserveTaskID(project *domain.Project, id string) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "task-"))
	if err != nil || !strings.HasPrefix(id, "task-") {
		return
	}
	if n >= project.NextTaskSeq {
		project.NextTaskSeq = n + 1
	}
}

func (s *TaskService) Get(projectID, id string) (*domain.Task, error) {
	return s.storage.GetTask(projectID, id)
}

func (s *TaskService) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	return s.storage.ListTasks(filter)
}

// Resolve finds a task by id, number or name.
func (s *TaskService) Resolve(projectID, ref string) (*domain.Task, error) {
	return s.search.Resolve(projectID, ref)
}

func (s *TaskService) Search(projectID, query string, limit int) ([]*search.Result, error) {
	return s.search.Search(query, search.Options{ProjectID: &projectID, Limit: limit})
}

func (s *TaskService) Update(projectID, id string, upd domain.TaskUpdate) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.list(projectID)
	if err != nil {
		return nil, err
	}

	i := indexOf(tasks, id)
	if i < 0 {
		return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
	}
	if upd.IsEmpty() {
		return tasks[i], nil
	}

	updated := tasks[i].Clone()
	upd.Apply(updated)
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	proposed := append([]*domain.Task(nil), tasks...)
	proposed[i] = updated
	if _, err := s.checkGraph(projectID, proposed); err != nil {
		return nil, err
	}

	if err := s.storage.UpdateTask(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes a task and deals with its dependents according to the
// removal policy.
func (s *TaskService) Remove(projectID, id string) (*RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.list(projectID)
	if err != nil {
		return nil, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
	}

	removed := tasks[i]
	var dependents []*domain.Task
	for _, t := range tasks {
		if t.DependsOn(id) {
			dependents = append(dependents, t)
		}
	}

	result := &RemoveResult{Removed: removed}
	remaining := make([]*domain.Task, 0, len(tasks)-1)
	for _, t := range tasks {
		if t.ID != id {
			remaining = append(remaining, t)
		}
	}

	if len(dependents) > 0 {
		switch s.removal {
		case domain.RemovalReject:
			return nil, fmt.Errorf("cannot remove %s: %w: %s", id, domain.ErrHasDependents, taskIDs(dependents))
		case domain.RemovalOrphan:
			if s.policy == schedule.PolicyStrict {
				return nil, fmt.Errorf("cannot remove %s: %w: %s would depend on a missing task under the strict policy",
					id, domain.ErrHasDependents, taskIDs(dependents))
			}
			for _, d := range dependents {
				result.Orphaned = append(result.Orphaned, d.ID)
			}
		case domain.RemovalDetach:
			now := time.Now()
			for _, d := range dependents {
				deps := make([]string, 0, len(d.Dependencies))
				for _, dep := range d.Dependencies {
					if dep != id {
						deps = append(deps, dep)
					}
				}
				d.Dependencies = deps
				d.UpdatedAt = now
				result.Detached = append(result.Detached, d.ID)
			}
		}
	}

	for pos, t := range remaining {
		t.Position = pos
	}
	if _, err := s.checkGraph(projectID, remaining); err != nil {
		return nil, err
	}
	if err := s.storage.ReplaceTasks(projectID, remaining); err != nil {
		return nil, err
	}

	s.logger.Info("task removed",
		"project", projectID,
		"task", id,
		"policy", string(s.removal),
		"detached", result.Detached,
		"orphaned", result.Orphaned,
	)
	return result, nil
}

// Move puts the task at index in display order, shifting the others. The
// index is clamped to the list.
func (s *TaskService) Move(projectID, id string, index int) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.list(projectID)
	if err != nil {
		return nil, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
	}

	if index < 0 {
		index = 0
	}
	if index > len(tasks)-1 {
		index = len(tasks) - 1
	}

	moved := tasks[i]
	tasks = append(tasks[:i], tasks[i+1:]...)
	tasks = append(tasks[:index], append([]*domain.Task{moved}, tasks[index:]...)...)
	for pos, t := range tasks {
		t.Position = pos
	}

	if err := s.storage.ReplaceTasks(projectID, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ApplyTemplate appends a named template's tasks to the project, wiring the
// template's dependencies to the newly allocated ids.
func (s *TaskService) ApplyTemplate(projectID, name string) ([]*domain.Task, error) {
	template, err := domain.Template(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(template))
	inputs := make([]TaskInput, 0, len(template))
	next := project.NextTaskSeq
	for _, tt := range template {
		id := fmt.Sprintf("task-%d", next)
		next++
		ids[tt.Key] = id

		deps := make([]string, 0, len(tt.After))
		for _, key := range tt.After {
			deps = append(deps, ids[key])
		}
		inputs = append(inputs, TaskInput{
			ID:           id,
			Name:         tt.Name,
			Duration:     tt.Duration,
			Dependencies: deps,
			Category:     tt.Category,
		})
	}

	return s.importLocked(project, inputs, false)
}

// Import adds inputs to the project as one edit: either all tasks are stored
// or none. With replace set the existing tasks are dropped first.
func (s *TaskService) Import(projectID string, inputs []TaskInput, replace bool) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	return s.importLocked(project, inputs, replace)
}

func (s *TaskService) importLocked(project *domain.Project, inputs []TaskInput, replace bool) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(inputs))
	if !replace {
		var err error
		if tasks, err = s.list(project.ID); err != nil {
			return nil, err
		}
	}

	added := make([]*domain.Task, 0, len(inputs))
	for _, in := range inputs {
		task, err := s.newTask(project, tasks, in)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
		added = append(added, task)
	}

	if _, err := s.checkGraph(project.ID, tasks); err != nil {
		return nil, err
	}
	if err := s.storage.ReplaceTasks(project.ID, tasks); err != nil {
		return nil, err
	}
	if err := s.projects.UpdateProject(project); err != nil {
		return nil, err
	}
	s.logger.Info("tasks imported", "project", project.ID, "count", len(added), "replace", replace)
	return added, nil
}

func (s *TaskService) list(projectID string) ([]*domain.Task, error) {
	return s.storage.ListTasks(domain.TaskFilter{ProjectID: &projectID})
}

// checkGraph projects a proposed task set and rejects it on any graph error.
func (s *TaskService) checkGraph(projectID string, tasks []*domain.Task) (*schedule.Schedule, error) {
	sched, err := schedule.Project(Nodes(tasks), s.policy)
	if err != nil {
		return nil, fmt.Errorf("rejected edit: %w", err)
	}
	warnUnresolved(s.logger, projectID, sched)
	return sched, nil
}

func indexOf(tasks []*domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func taskIDs(tasks []*domain.Task) string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return strings.Join(ids, ", ")
}
