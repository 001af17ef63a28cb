package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNode       = errors.New("invalid task node")
	ErrDuplicateTask     = errors.New("duplicate task")
	ErrMissingDependency = errors.New("missing dependency")
	ErrCycle             = errors.New("dependency cycle")
	ErrUnknownTask       = errors.New("unknown task")
	ErrUnresolved        = errors.New("start day cannot be derived")
	ErrUnknownPolicy     = errors.New("unknown missing-dependency policy")
)

// GraphError describes why a task set cannot be projected.
type GraphError struct {
	Kind   error
	TaskID string
	Ref    string
	Path   []string
	Reason string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case len(e.Path) > 0:
		return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(e.Path, " -> "))
	case e.Ref != "":
		return fmt.Sprintf("%s: task %s depends on %s", e.Kind.Error(), e.TaskID, e.Ref)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind.Error(), e.TaskID, e.Reason)
	case e.TaskID != "":
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.TaskID)
	}
	return e.Kind.Error()
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidNode(id, reason string) error {
	return &GraphError{Kind: ErrInvalidNode, TaskID: id, Reason: reason}
}

func missingDependency(taskID, ref string) error {
	return &GraphError{Kind: ErrMissingDependency, TaskID: taskID, Ref: ref}
}

func cycleError(path []string) error {
	return &GraphError{Kind: ErrCycle, Path: path}
}

// Unresolved explains why a task has no start day under the lenient policy.
// Missing lists dependency ids that do not exist; BlockedBy lists existing
// dependencies that are themselves unresolved.
type Unresolved struct {
	TaskID    string   `json:"taskId"`
	Missing   []string `json:"missing,omitempty"`
	BlockedBy []string `json:"blockedBy,omitempty"`
}

func (u Unresolved) Err() error {
	var parts []string
	if len(u.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(u.Missing, ", "))
	}
	if len(u.BlockedBy) > 0 {
		parts = append(parts, "blocked by unresolved "+strings.Join(u.BlockedBy, ", "))
	}
	return fmt.Errorf("task %s: %w (%s)", u.TaskID, ErrUnresolved, strings.Join(parts, "; "))
}
