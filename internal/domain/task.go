package domain

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not-started"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// ParseTaskStatus accepts the canonical form as well as the spaced labels
// ("Not Started", "In Progress") used by older exports.
func ParseTaskStatus(s string) (TaskStatus, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
	switch TaskStatus(normalized) {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return TaskStatus(normalized), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidTask)
}

type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"projectId"`
	Name         string     `json:"name"`
	Duration     int        `json:"duration"`
	Dependencies []string   `json:"dependencies"`
	Category     Category   `json:"category,omitempty"`
	Status       TaskStatus `json:"status"`
	Position     int        `json:"position"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func NewTask(projectID, id, name string, duration int) *Task {
	now := time.Now()
	return &Task{
		ID:           id,
		ProjectID:    projectID,
		Name:         name,
		Duration:     duration,
		Dependencies: make([]string, 0),
		Status:       StatusNotStarted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the fields of a single task. Whether its dependencies
// resolve is a property of the whole task set and is checked by the scheduler.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name is required: %w", ErrInvalidTask)
	}
	if t.Duration < 1 {
		return fmt.Errorf("task %q: duration must be a positive number of days, got %d: %w", t.Name, t.Duration, ErrInvalidTask)
	}
	if t.Category != "" && !t.Category.Valid() {
		return fmt.Errorf("task %q: unknown category %q: %w", t.Name, t.Category, ErrInvalidTask)
	}
	switch t.Status {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
	default:
		return fmt.Errorf("task %q: unknown status %q: %w", t.Name, t.Status, ErrInvalidTask)
	}

	seen := make(map[string]bool, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if dep == t.ID {
			return fmt.Errorf("task %s cannot depend on itself: %w", t.ID, ErrInvalidTask)
		}
		if seen[dep] {
			return fmt.Errorf("task %s lists dependency %s twice: %w", t.ID, dep, ErrInvalidTask)
		}
		seen[dep] = true
	}
	return nil
}

func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate a proposal without
// touching stored state.
func (t *Task) Clone() *Task {
	c := *t
	c.Dependencies = append(make([]string, 0, len(t.Dependencies)), t.Dependencies...)
	return &c
}

type TaskFilter struct {
	ProjectID *string
	Status    *TaskStatus
	Category  *Category
}

func (f TaskFilter) Matches(t *Task) bool {
	if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	return true
}

// TaskUpdate holds the editable fields of a task; nil fields are left as is.
type TaskUpdate struct {
	Name         *string
	Duration     *int
	Dependencies *[]string
	Category     *Category
	Status       *TaskStatus
}

func (u TaskUpdate) IsEmpty() bool {
	return u.Name == nil && u.Duration == nil && u.Dependencies == nil && u.Category == nil && u.Status == nil
}

func (u TaskUpdate) Apply(t *Task) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Duration != nil {
		t.Duration = *u.Duration
	}
	if u.Dependencies != nil {
		t.Dependencies = append(make([]string, 0, len(*u.Dependencies)), (*u.Dependencies)...)
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	t.UpdatedAt = time.Now()
}
