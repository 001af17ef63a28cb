package storage

import (
	"fmt"
	"sync"

	"github.com/rcliao/timeline/internal/domain"
)

// MemoryStorage keeps everything in maps. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryStorage struct {
	mu             sync.RWMutex
	tasks          map[string]map[string]*domain.Task
	projects       map[string]*domain.Project
	simulations    map[string]domain.SimulationState
	preferences    domain.Preferences
	currentProject *string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks:       make(map[string]map[string]*domain.Task),
		projects:    make(map[string]*domain.Project),
		simulations: make(map[string]domain.SimulationState),
	}
}

// Task Repository Implementation
func (ms *MemoryStorage) CreateTask(task *domain.Task) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	byID := ms.tasks[task.ProjectID]
	if byID == nil {
		byID = make(map[string]*domain.Task)
		ms.tasks[task.ProjectID] = byID
	}
	if _, exists := byID[task.ID]; exists {
		return fmt.Errorf("task with ID %s %w", task.ID, domain.ErrAlreadyExists)
	}

	byID[task.ID] = task.Clone()
	return nil
}

func (ms *MemoryStorage) UpdateTask(task *domain.Task) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ProjectID][task.ID]; !exists {
		return fmt.Errorf("task with ID %s %w", task.ID, domain.ErrNotFound)
	}

	ms.tasks[task.ProjectID][task.ID] = task.Clone()
	return nil
}

func (ms *MemoryStorage) GetTask(projectID, id string) (*domain.Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	task, exists := ms.tasks[projectID][id]
	if !exists {
		return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
	}

	return task.Clone(), nil
}

func (ms *MemoryStorage) ListTasks(filter domain.TaskFilter) ([]*domain.Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]*domain.Task, 0)
	for _, byID := range ms.tasks {
		for _, task := range byID {
			if filter.Matches(task) {
				result = append(result, task.Clone())
			}
		}
	}

	sortTasks(result)
	return result, nil
}

func (ms *MemoryStorage) DeleteTask(projectID, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[projectID][id]; !exists {
		return fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
	}

	delete(ms.tasks[projectID], id)
	return nil
}

func (ms *MemoryStorage) ReplaceTasks(projectID string, tasks []*domain.Task) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	byID := make(map[string]*domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task.Clone()
	}
	ms.tasks[projectID] = byID
	return nil
}

// Project Repository Implementation
func (ms *MemoryStorage) CreateProject(project *domain.Project) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.projects[project.ID]; exists {
		return fmt.Errorf("project with ID %s %w", project.ID, domain.ErrAlreadyExists)
	}

	p := *project
	ms.projects[project.ID] = &p
	return nil
}

func (ms *MemoryStorage) UpdateProject(project *domain.Project) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.projects[project.ID]; !exists {
		return fmt.Errorf("project with ID %s %w", project.ID, domain.ErrNotFound)
	}

	p := *project
	ms.projects[project.ID] = &p
	return nil
}

func (ms *MemoryStorage) GetProject(id string) (*domain.Project, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.getProjectUnlocked(id)
}

func (ms *MemoryStorage) getProjectUnlocked(id string) (*domain.Project, error) {
	project, exists := ms.projects[id]
	if !exists {
		return nil, fmt.Errorf("project with ID %s %w", id, domain.ErrNotFound)
	}

	p := *project
	return &p, nil
}

func (ms *MemoryStorage) ListProjects() ([]*domain.Project, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]*domain.Project, 0, len(ms.projects))
	for _, project := range ms.projects {
		p := *project
		result = append(result, &p)
	}

	sortProjects(result)
	return result, nil
}

func (ms *MemoryStorage) SetCurrentProject(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.projects[id]; !exists {
		return fmt.Errorf("project with ID %s %w", id, domain.ErrNotFound)
	}

	ms.currentProject = &id
	return nil
}

func (ms *MemoryStorage) GetCurrentProject() (*domain.Project, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.currentProject == nil {
		return nil, domain.ErrNoCurrentProject
	}

	return ms.getProjectUnlocked(*ms.currentProject)
}

// Preferences and simulation state
func (ms *MemoryStorage) GetPreferences() (domain.Preferences, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.preferences, nil
}

func (ms *MemoryStorage) SavePreferences(prefs domain.Preferences) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.preferences = prefs
	return nil
}

func (ms *MemoryStorage) GetSimulation(projectID string) (*domain.SimulationState, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	state, exists := ms.simulations[projectID]
	if !exists {
		return &domain.SimulationState{ProjectID: projectID}, nil
	}
	return &state, nil
}

func (ms *MemoryStorage) SaveSimulation(state *domain.SimulationState) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.simulations[state.ProjectID] = *state
	return nil
}

func (ms *MemoryStorage) Close() error {
	return nil
}
