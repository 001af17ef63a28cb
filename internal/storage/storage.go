package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rcliao/timeline/internal/domain"
)

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendFile, BackendSQLite, BackendMemory:
		return b, nil
	case "":
		return BackendFile, nil
	}
	return "", fmt.Errorf("unknown storage backend %q", s)
}

// Storage is everything the services persist. Each backend guards its own
// state, so one Storage can be shared by the CLI and the MCP server.
type Storage interface {
	CreateProject(project *domain.Project) error
	UpdateProject(project *domain.Project) error
	GetProject(id string) (*domain.Project, error)
	ListProjects() ([]*domain.Project, error)
	SetCurrentProject(id string) error
	GetCurrentProject() (*domain.Project, error)

	CreateTask(task *domain.Task) error
	UpdateTask(task *domain.Task) error
	GetTask(projectID, id string) (*domain.Task, error)
	ListTasks(filter domain.TaskFilter) ([]*domain.Task, error)
	DeleteTask(projectID, id string) error
	ReplaceTasks(projectID string, tasks []*domain.Task) error

	GetPreferences() (domain.Preferences, error)
	SavePreferences(prefs domain.Preferences) error

	GetSimulation(projectID string) (*domain.SimulationState, error)
	SaveSimulation(state *domain.SimulationState) error

	Close() error
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*SQLiteStorage)(nil)
)

// Open returns the backend selected by name. sqlitePath defaults to
// timeline.db inside dataDir.
func Open(backend Backend, dataDir, sqlitePath string) (Storage, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendSQLite:
		if sqlitePath == "" {
			sqlitePath = filepath.Join(dataDir, "timeline.db")
		}
		return NewSQLiteStorage(sqlitePath)
	case BackendFile, "":
		return NewFileStorage(dataDir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// sortTasks orders tasks for display: by position, then by id.
func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func sortProjects(projects []*domain.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}

var errNoKey = errors.New("key not found")
