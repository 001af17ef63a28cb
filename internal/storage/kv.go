package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rcliao/timeline/internal/domain"
)

// Fixed keys. Values are JSON documents.
const (
	keyCurrentProject = "current_project"
	keyPreferences    = "preferences"

	prefixProject    = "project/"
	prefixTasks      = "tasks/"
	prefixSimulation = "simulation/"
)

func projectKey(id string) string    { return prefixProject + id }
func tasksKey(id string) string      { return prefixTasks + id }
func simulationKey(id string) string { return prefixSimulation + id }

// kv is a flat key-value store of JSON documents. get reports errNoKey for
// keys that were never written.
type kv interface {
	get(key string) ([]byte, error)
	put(key string, value []byte) error
	keys(prefix string) ([]string, error)
	close() error
}

// kvStorage implements Storage on top of a kv backend. The file and SQLite
// backends differ only in where the documents live.
type kvStorage struct {
	mu sync.RWMutex
	kv kv
}

func (s *kvStorage) getJSON(key string, target interface{}) error {
	data, err := s.kv.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *kvStorage) putJSON(key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.put(key, data)
}

// Project Repository Implementation
func (s *kvStorage) CreateProject(project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.kv.get(projectKey(project.ID)); err == nil {
		return fmt.Errorf("project with ID %s %w", project.ID, domain.ErrAlreadyExists)
	} else if !errors.Is(err, errNoKey) {
		return err
	}

	return s.putJSON(projectKey(project.ID), project)
}

func (s *kvStorage) UpdateProject(project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getProjectUnlocked(project.ID); err != nil {
		return err
	}
	return s.putJSON(projectKey(project.ID), project)
}

func (s *kvStorage) GetProject(id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getProjectUnlocked(id)
}

func (s *kvStorage) getProjectUnlocked(id string) (*domain.Project, error) {
	var project domain.Project
	err := s.getJSON(projectKey(id), &project)
	if errors.Is(err, errNoKey) {
		return nil, fmt.Errorf("project with ID %s %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *kvStorage) ListProjects() ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listProjectsUnlocked()
}

func (s *kvStorage) listProjectsUnlocked() ([]*domain.Project, error) {
	keys, err := s.kv.keys(prefixProject)
	if err != nil {
		return nil, err
	}

	projects := make([]*domain.Project, 0, len(keys))
	for _, key := range keys {
		project, err := s.getProjectUnlocked(strings.TrimPrefix(key, prefixProject))
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	sortProjects(projects)
	return projects, nil
}

func (s *kvStorage) SetCurrentProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getProjectUnlocked(id); err != nil {
		return err
	}
	return s.putJSON(keyCurrentProject, id)
}

func (s *kvStorage) GetCurrentProject() (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.getJSON(keyCurrentProject, &id)
	if errors.Is(err, errNoKey) || (err == nil && id == "") {
		return nil, domain.ErrNoCurrentProject
	}
	if err != nil {
		return nil, err
	}
	return s.getProjectUnlocked(id)
}

// Task Repository Implementation
func (s *kvStorage) loadTasks(projectID string) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0)
	err := s.getJSON(tasksKey(projectID), &tasks)
	if errors.Is(err, errNoKey) {
		return make([]*domain.Task, 0), nil
	}
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *kvStorage) saveTasks(projectID string, tasks []*domain.Task) error {
	if tasks == nil {
		tasks = make([]*domain.Task, 0)
	}
	return s.putJSON(tasksKey(projectID), tasks)
}

func (s *kvStorage) CreateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks(task.ProjectID)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if t.ID == task.ID {
			return fmt.Errorf("task with ID %s %w", task.ID, domain.ErrAlreadyExists)
		}
	}

	tasks = append(tasks, task)
	return s.saveTasks(task.ProjectID, tasks)
}

func (s *kvStorage) UpdateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks(task.ProjectID)
	if err != nil {
		return err
	}

	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task
			return s.saveTasks(task.ProjectID, tasks)
		}
	}

	return fmt.Errorf("task with ID %s %w", task.ID, domain.ErrNotFound)
}

func (s *kvStorage) GetTask(projectID, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks, err := s.loadTasks(projectID)
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.ID == id {
			return task, nil
		}
	}

	return nil, fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
}

func (s *kvStorage) ListTasks(filter domain.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projectIDs []string
	if filter.ProjectID != nil {
		projectIDs = []string{*filter.ProjectID}
	} else {
		projects, err := s.listProjectsUnlocked()
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}

	result := make([]*domain.Task, 0)
	for _, projectID := range projectIDs {
		tasks, err := s.loadTasks(projectID)
		if err != nil {
			return nil, err
		}
		for _, task := range tasks {
			if filter.Matches(task) {
				result = append(result, task)
			}
		}
	}

	sortTasks(result)
	return result, nil
}

func (s *kvStorage) DeleteTask(projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks(projectID)
	if err != nil {
		return err
	}

	for i, task := range tasks {
		if task.ID == id {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return s.saveTasks(projectID, tasks)
		}
	}

	return fmt.Errorf("task with ID %s %w", id, domain.ErrNotFound)
}

func (s *kvStorage) ReplaceTasks(projectID string, tasks []*domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveTasks(projectID, tasks)
}

// Preferences and simulation state
func (s *kvStorage) GetPreferences() (domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prefs domain.Preferences
	err := s.getJSON(keyPreferences, &prefs)
	if errors.Is(err, errNoKey) {
		return domain.Preferences{}, nil
	}
	return prefs, err
}

func (s *kvStorage) SavePreferences(prefs domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putJSON(keyPreferences, prefs)
}

func (s *kvStorage) GetSimulation(projectID string) (*domain.SimulationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state domain.SimulationState
	err := s.getJSON(simulationKey(projectID), &state)
	if errors.Is(err, errNoKey) {
		return &domain.SimulationState{ProjectID: projectID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *kvStorage) SaveSimulation(state *domain.SimulationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putJSON(simulationKey(state.ProjectID), state)
}

func (s *kvStorage) Close() error {
	return s.kv.close()
}
