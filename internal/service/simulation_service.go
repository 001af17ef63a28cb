package service

import (
	"log/slog"
	"time"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/logging"
	"github.com/rcliao/timeline/internal/timeline"
)

// Playback is a project's timeline with a simulator positioned at the
// persisted current day.
type Playback struct {
	Timeline  *Timeline
	Simulator *timeline.Simulator
}

func (p *Playback) Frame() timeline.Frame {
	return p.Simulator.Frame(p.Timeline.Schedule, p.Timeline.Items())
}

// SimulationService runs the timeline clock across process boundaries. The
// running state is stored with its reference time, so a later command picks
// up exactly where the wall clock says the simulation is.
type SimulationService struct {
	storage   SimulationStorage
	schedules *ScheduleService
	period    time.Duration
	now       Clock
	logger    *slog.Logger
}

func NewSimulationService(storage SimulationStorage, schedules *ScheduleService, period time.Duration, logger *slog.Logger) *SimulationService {
	if period <= 0 {
		period = timeline.DefaultPeriod
	}
	return &SimulationService{
		storage:   storage,
		schedules: schedules,
		period:    period,
		now:       time.Now,
		logger:    logging.OrDefault(logger),
	}
}

// WithClock replaces the wall clock, for tests.
func (s *SimulationService) WithClock(now Clock) *SimulationService {
	s.now = now
	return s
}

func (s *SimulationService) Period() time.Duration {
	return s.period
}

// Load builds the playback for a project and advances it to now. A
// simulation that ran to the end while nobody watched is stored as stopped.
func (s *SimulationService) Load(projectID string) (*Playback, error) {
	tl, err := s.schedules.Project(projectID)
	if err != nil {
		return nil, err
	}
	state, err := s.storage.GetSimulation(projectID)
	if err != nil {
		return nil, err
	}

	sim := timeline.NewSimulator(s.period, tl.Schedule.TotalDuration())
	var reference time.Time
	if state.StartedAt != nil {
		reference = *state.StartedAt
	}
	sim.Restore(state.CurrentDay, state.Running, reference, s.now())

	pb := &Playback{Timeline: tl, Simulator: sim}
	if state.Running && sim.State() != timeline.Running {
		s.logger.Info("simulation finished", "project", projectID, "day", sim.CurrentDay())
		if err := s.Save(projectID, sim); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

// Save persists the simulator's position and state.
func (s *SimulationService) Save(projectID string, sim *timeline.Simulator) error {
	state := &domain.SimulationState{
		ProjectID:  projectID,
		CurrentDay: sim.CurrentDay(),
		Running:    sim.State() == timeline.Running,
		UpdatedAt:  s.now(),
	}
	if state.Running {
		ref := sim.Reference()
		state.StartedAt = &ref
	}
	return s.storage.SaveSimulation(state)
}

func (s *SimulationService) Status(projectID string) (timeline.Frame, error) {
	pb, err := s.Load(projectID)
	if err != nil {
		return timeline.Frame{}, err
	}
	return pb.Frame(), nil
}

func (s *SimulationService) Start(projectID string) (timeline.Frame, error) {
	return s.apply(projectID, "start", func(sim *timeline.Simulator) error {
		return sim.Start(s.now())
	})
}

func (s *SimulationService) Stop(projectID string) (timeline.Frame, error) {
	return s.apply(projectID, "stop", func(sim *timeline.Simulator) error {
		sim.Stop()
		return nil
	})
}

func (s *SimulationService) Reset(projectID string) (timeline.Frame, error) {
	return s.apply(projectID, "reset", func(sim *timeline.Simulator) error {
		sim.Reset()
		return nil
	})
}

func (s *SimulationService) Seek(projectID string, day float64) (timeline.Frame, error) {
	return s.apply(projectID, "seek", func(sim *timeline.Simulator) error {
		sim.Seek(day, s.now())
		return nil
	})
}

func (s *SimulationService) apply(projectID, action string, fn func(*timeline.Simulator) error) (timeline.Frame, error) {
	pb, err := s.Load(projectID)
	if err != nil {
		return timeline.Frame{}, err
	}
	if err := fn(pb.Simulator); err != nil {
		return timeline.Frame{}, err
	}
	if err := s.Save(projectID, pb.Simulator); err != nil {
		return timeline.Frame{}, err
	}
	s.logger.Debug("simulation "+action, "project", projectID, "day", pb.Simulator.CurrentDay(), "state", pb.Simulator.State().String())
	return pb.Frame(), nil
}
