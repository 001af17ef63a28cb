package service

import (
	"time"

	"github.com/rcliao/timeline/internal/domain"
)

// PreferenceStorage interface for global display settings
type PreferenceStorage interface {
	GetPreferences() (domain.Preferences, error)
	SavePreferences(prefs domain.Preferences) error
}

// SimulationStorage interface for per-project playback state
type SimulationStorage interface {
	GetSimulation(projectID string) (*domain.SimulationState, error)
	SaveSimulation(state *domain.SimulationState) error
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time
