package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/service"
	"github.com/rcliao/timeline/internal/timeline"
)

var (
	ErrInvalidParams = errors.New("invalid parameters")
	ErrUnknownMethod = errors.New("unknown method")
)

type MCPServer struct {
	projects    *service.ProjectService
	tasks       *service.TaskService
	schedules   *service.ScheduleService
	simulations *service.SimulationService
	summaries   *service.ProjectSummaryService
	logger      *slog.Logger
}

func NewMCPServer(
	projects *service.ProjectService,
	tasks *service.TaskService,
	schedules *service.ScheduleService,
	simulations *service.SimulationService,
	summaries *service.ProjectSummaryService,
	logger *slog.Logger,
) *MCPServer {
	return &MCPServer{
		projects:    projects,
		tasks:       tasks,
		schedules:   schedules,
		simulations: simulations,
		summaries:   summaries,
		logger:      logging.OrDefault(logger),
	}
}

func (s *MCPServer) HandleCommand(method string, params json.RawMessage) (interface{}, error) {
	s.logger.Debug("handling MCP command", "method", method)

	switch method {
	// Project commands
	case "timeline.project.create":
		return s.handleProjectCreate(params)
	case "timeline.project.list":
		return s.projects.List()
	case "timeline.project.current":
		return s.projects.GetCurrent()
	case "timeline.project.set_current":
		return s.handleProjectSetCurrent(params)
	case "timeline.project.rename":
		return s.handleProjectRename(params)

	// Task commands
	case "timeline.task.add":
		return s.handleTaskAdd(params)
	case "timeline.task.list":
		return s.handleTaskList(params)
	case "timeline.task.get":
		return s.handleTaskGet(params)
	case "timeline.task.update":
		return s.handleTaskUpdate(params)
	case "timeline.task.remove":
		return s.handleTaskRemove(params)
	case "timeline.task.move":
		return s.handleTaskMove(params)
	case "timeline.task.search":
		return s.handleTaskSearch(params)
	case "timeline.task.apply_template":
		return s.handleApplyTemplate(params)

	// Schedule and simulation
	case "timeline.schedule":
		return s.handleSchedule(params)
	case "timeline.sim.status":
		return s.handleSim(params, s.simulations.Status)
	case "timeline.sim.start":
		return s.handleSim(params, s.simulations.Start)
	case "timeline.sim.stop":
		return s.handleSim(params, s.simulations.Stop)
	case "timeline.sim.reset":
		return s.handleSim(params, s.simulations.Reset)
	case "timeline.sim.seek":
		return s.handleSimSeek(params)
	case "timeline.summary":
		return s.handleSummary(params)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// ProjectRef selects a project by id, id prefix or name. Empty means the
// current project.
type ProjectRef struct {
	ProjectID string `json:"projectId,omitempty"`
}

func (s *MCPServer) project(ref ProjectRef) (*domain.Project, error) {
	return s.projects.Resolve(ref.ProjectID)
}

// Project handlers
type CreateProjectParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template,omitempty"`
}

type CreateProjectResult struct {
	Project *domain.Project `json:"project"`
	Tasks   []*domain.Task  `json:"tasks,omitempty"`
}

func (s *MCPServer) handleProjectCreate(params json.RawMessage) (interface{}, error) {
	var p CreateProjectParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Template != "" {
		if _, err := domain.Template(p.Template); err != nil {
			return nil, err
		}
	}

	project, err := s.projects.Create(p.Name, p.Description)
	if err != nil {
		return nil, err
	}
	result := &CreateProjectResult{Project: project}
	if p.Template != "" {
		if result.Tasks, err = s.tasks.ApplyTemplate(project.ID, p.Template); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type SetCurrentProjectParams struct {
	ID string `json:"id"`
}

func (s *MCPServer) handleProjectSetCurrent(params json.RawMessage) (interface{}, error) {
	var p SetCurrentProjectParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}

	project, err := s.projects.Resolve(p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.SetCurrent(project.ID); err != nil {
		return nil, err
	}
	return project, nil
}

type RenameProjectParams struct {
	ProjectRef
	Name string `json:"name"`
}

func (s *MCPServer) handleProjectRename(params json.RawMessage) (interface{}, error) {
	var p RenameProjectParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}
	return s.projects.Rename(project.ID, p.Name)
}

// Task handlers
type AddTaskParams struct {
	ProjectRef
	Name         string   `json:"name"`
	Duration     int      `json:"duration"`
	Dependencies []string `json:"dependencies,omitempty"`
	Category     string   `json:"category,omitempty"`
	Status       string   `json:"status,omitempty"`
}

func (s *MCPServer) handleTaskAdd(params json.RawMessage) (interface{}, error) {
	var p AddTaskParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}

	in := service.TaskInput{
		Name:         p.Name,
		Duration:     p.Duration,
		Dependencies: p.Dependencies,
	}
	if in.Category, err = domain.ParseCategory(p.Category); err != nil {
		return nil, err
	}
	if p.Status != "" {
		if in.Status, err = domain.ParseTaskStatus(p.Status); err != nil {
			return nil, err
		}
	}
	return s.tasks.Add(project.ID, in)
}

type ListTasksParams struct {
	ProjectRef
	Status     string `json:"status,omitempty"`
	Category   string `json:"category,omitempty"`
	ByCategory bool   `json:"byCategory,omitempty"`
}

func (s *MCPServer) handleTaskList(params json.RawMessage) (interface{}, error) {
	var p ListTasksParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}

	filter := domain.TaskFilter{ProjectID: &project.ID}
	if p.Status != "" {
		status, err := domain.ParseTaskStatus(p.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if p.Category != "" {
		category, err := domain.ParseCategory(p.Category)
		if err != nil {
			return nil, err
		}
		filter.Category = &category
	}

	tasks, err := s.tasks.List(filter)
	if err != nil {
		return nil, err
	}
	if p.ByCategory {
		return domain.GroupByCategory(tasks), nil
	}
	return tasks, nil
}

// TaskRef selects a task by id, number or name.
type TaskRef struct {
	ProjectRef
	Task string `json:"task"`
}

func (s *MCPServer) task(ref TaskRef) (*domain.Project, *domain.Task, error) {
	if strings.TrimSpace(ref.Task) == "" {
		return nil, nil, fmt.Errorf("%w: task is required", ErrInvalidParams)
	}
	project, err := s.project(ref.ProjectRef)
	if err != nil {
		return nil, nil, err
	}
	task, err := s.tasks.Resolve(project.ID, ref.Task)
	if err != nil {
		return nil, nil, err
	}
	return project, task, nil
}

func (s *MCPServer) handleTaskGet(params json.RawMessage) (interface{}, error) {
	var p TaskRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	_, task, err := s.task(p)
	return task, err
}

type UpdateTaskParams struct {
	TaskRef
	Name         *string   `json:"name,omitempty"`
	Duration     *int      `json:"duration,omitempty"`
	Dependencies *[]string `json:"dependencies,omitempty"`
	Category     *string   `json:"category,omitempty"`
	Status       *string   `json:"status,omitempty"`
}

func (s *MCPServer) handleTaskUpdate(params json.RawMessage) (interface{}, error) {
	var p UpdateTaskParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, task, err := s.task(p.TaskRef)
	if err != nil {
		return nil, err
	}

	upd := domain.TaskUpdate{
		Name:         p.Name,
		Duration:     p.Duration,
		Dependencies: p.Dependencies,
	}
	if p.Category != nil {
		category, err := domain.ParseCategory(*p.Category)
		if err != nil {
			return nil, err
		}
		upd.Category = &category
	}
	if p.Status != nil {
		status, err := domain.ParseTaskStatus(*p.Status)
		if err != nil {
			return nil, err
		}
		upd.Status = &status
	}
	return s.tasks.Update(project.ID, task.ID, upd)
}

func (s *MCPServer) handleTaskRemove(params json.RawMessage) (interface{}, error) {
	var p TaskRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, task, err := s.task(p)
	if err != nil {
		return nil, err
	}
	return s.tasks.Remove(project.ID, task.ID)
}

type MoveTaskParams struct {
	TaskRef
	Index int `json:"index"`
}

func (s *MCPServer) handleTaskMove(params json.RawMessage) (interface{}, error) {
	var p MoveTaskParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, task, err := s.task(p.TaskRef)
	if err != nil {
		return nil, err
	}
	return s.tasks.Move(project.ID, task.ID, p.Index)
}

type SearchTasksParams struct {
	ProjectRef
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *MCPServer) handleTaskSearch(params json.RawMessage) (interface{}, error) {
	var p SearchTasksParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}
	if p.Limit == 0 {
		p.Limit = 10
	}
	return s.tasks.Search(project.ID, p.Query, p.Limit)
}

type ApplyTemplateParams struct {
	ProjectRef
	Template string `json:"template"`
}

func (s *MCPServer) handleApplyTemplate(params json.RawMessage) (interface{}, error) {
	var p ApplyTemplateParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}
	return s.tasks.ApplyTemplate(project.ID, p.Template)
}

// Schedule and simulation handlers
func (s *MCPServer) handleSchedule(params json.RawMessage) (interface{}, error) {
	var p ProjectRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p)
	if err != nil {
		return nil, err
	}
	tl, err := s.schedules.Project(project.ID)
	if err != nil {
		return nil, err
	}
	return tl.View(), nil
}

func (s *MCPServer) handleSim(params json.RawMessage, op func(projectID string) (timeline.Frame, error)) (interface{}, error) {
	var p ProjectRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p)
	if err != nil {
		return nil, err
	}
	return op(project.ID)
}

type SeekParams struct {
	ProjectRef
	Day float64 `json:"day"`
}

func (s *MCPServer) handleSimSeek(params json.RawMessage) (interface{}, error) {
	var p SeekParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p.ProjectRef)
	if err != nil {
		return nil, err
	}
	return s.simulations.Seek(project.ID, p.Day)
}

func (s *MCPServer) handleSummary(params json.RawMessage) (interface{}, error) {
	var p ProjectRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	project, err := s.project(p)
	if err != nil {
		return nil, err
	}
	return s.summaries.GenerateProjectSummary(project.ID)
}
