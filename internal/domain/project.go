package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultProjectName = "Project Timeline"

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	NextTaskSeq int       `json:"nextTaskSeq"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewProject(name, description string) *Project {
	if name == "" {
		name = DefaultProjectName
	}
	now := time.Now()
	return &Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		NextTaskSeq: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AllocateTaskID hands out the next sequential task id. The counter only
// grows, so ids of removed tasks are never handed out again.
func (p *Project) AllocateTaskID() string {
	if p.NextTaskSeq < 1 {
		p.NextTaskSeq = 1
	}
	id := fmt.Sprintf("task-%d", p.NextTaskSeq)
	p.NextTaskSeq++
	p.UpdatedAt = time.Now()
	return id
}

// Preferences are global display settings.
type Preferences struct {
	DarkMode bool `json:"isDarkMode"`
}

// SimulationState is the persisted form of a project's timeline playback.
// StartedAt is the reference point of a running simulation; it is nil while stopped.
type SimulationState struct {
	ProjectID  string     `json:"projectId"`
	CurrentDay float64    `json:"currentDay"`
	Running    bool       `json:"running"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
