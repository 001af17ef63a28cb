package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/timeline/internal/domain"
)

type ProjectService struct {
	storage ProjectStorage
}

type ProjectStorage interface {
	CreateProject(project *domain.Project) error
	UpdateProject(project *domain.Project) error
	GetProject(id string) (*domain.Project, error)
	ListProjects() ([]*domain.Project, error)
	SetCurrentProject(id string) error
	GetCurrentProject() (*domain.Project, error)
}

func NewProjectService(storage ProjectStorage) *ProjectService {
	return &ProjectService{
		storage: storage,
	}
}

// Create stores a new project. The first project created becomes current.
func (s *ProjectService) Create(name, description string) (*domain.Project, error) {
	project := domain.NewProject(strings.TrimSpace(name), description)
	if err := s.storage.CreateProject(project); err != nil {
		return nil, err
	}

	if _, err := s.storage.GetCurrentProject(); errors.Is(err, domain.ErrNoCurrentProject) {
		if err := s.storage.SetCurrentProject(project.ID); err != nil {
			return nil, err
		}
	}
	return project, nil
}

func (s *ProjectService) Get(id string) (*domain.Project, error) {
	return s.storage.GetProject(id)
}

func (s *ProjectService) List() ([]*domain.Project, error) {
	return s.storage.ListProjects()
}

func (s *ProjectService) SetCurrent(id string) error {
	return s.storage.SetCurrentProject(id)
}

func (s *ProjectService) GetCurrent() (*domain.Project, error) {
	return s.storage.GetCurrentProject()
}

// Rename changes the timeline title.
func (s *ProjectService) Rename(id, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}

	project, err := s.storage.GetProject(id)
	if err != nil {
		return nil, err
	}
	project.Name = name
	project.UpdatedAt = time.Now()

	if err := s.storage.UpdateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Resolve finds a project by id, unique id prefix, or name. An empty ref
// means the current project.
func (s *ProjectService) Resolve(ref string) (*domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.storage.GetCurrentProject()
	}

	projects, err := s.storage.ListProjects()
	if err != nil {
		return nil, err
	}

	var matches []*domain.Project
	for _, p := range projects {
		if p.ID == ref {
			return p, nil
		}
		if strings.EqualFold(p.Name, ref) || strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project %q %w", ref, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, p := range matches {
		ids[i] = p.ID
	}
	return nil, fmt.Errorf("project %q %w: %s", ref, domain.ErrAmbiguous, strings.Join(ids, ", "))
}
