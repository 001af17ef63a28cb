// Package timeline plays a virtual "current day" clock over a schedule.
//
// A Simulator is not safe for concurrent use. It is meant to be owned by a
// single event loop (the terminal viewer's update loop or the play command's
// ticker goroutine) that serializes ticks with edits.
package timeline

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPeriod is the real time it takes to play a whole project.
const DefaultPeriod = 24 * time.Hour

var ErrEmptyTimeline = errors.New("timeline has no scheduled days")

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Simulator maps elapsed real time onto simulated days: after one period the
// clock has covered the whole project.
type Simulator struct {
	period    time.Duration
	total     int
	state     State
	day       float64
	reference time.Time
}

func NewSimulator(period time.Duration, total int) *Simulator {
	if period <= 0 {
		period = DefaultPeriod
	}
	if total < 0 {
		total = 0
	}
	return &Simulator{period: period, total: total}
}

func (s *Simulator) State() State        { return s.state }
func (s *Simulator) CurrentDay() float64 { return s.day }
func (s *Simulator) Total() int          { return s.total }
func (s *Simulator) Period() time.Duration {
	return s.period
}

// Reference is the instant the current run would have started from day zero.
// It is zero while stopped.
func (s *Simulator) Reference() time.Time {
	if s.state != Running {
		return time.Time{}
	}
	return s.reference
}

// dayLength is the real time that corresponds to one simulated day.
func (s *Simulator) dayLength() time.Duration {
	return time.Duration(float64(s.period) / float64(s.total))
}

func (s *Simulator) anchor(now time.Time) {
	s.reference = now.Add(-time.Duration(s.day * float64(s.dayLength())))
}

// Start resumes playback from the current day. Starting a running simulator
// is a no-op.
func (s *Simulator) Start(now time.Time) error {
	if s.total <= 0 {
		return ErrEmptyTimeline
	}
	if s.state == Running {
		return nil
	}
	s.anchor(now)
	s.state = Running
	return nil
}

func (s *Simulator) Stop() {
	s.state = Stopped
	s.reference = time.Time{}
}

func (s *Simulator) Reset() {
	s.Stop()
	s.day = 0
}

// Tick advances a running simulator to now and returns the current day. The
// simulator stops by itself once the last day is reached.
func (s *Simulator) Tick(now time.Time) float64 {
	if s.state != Running {
		return s.day
	}
	elapsed := now.Sub(s.reference)
	day := elapsed.Seconds() / s.period.Seconds() * float64(s.total)
	s.day = clamp(day, 0, float64(s.total))
	if s.day >= float64(s.total) {
		s.Stop()
	}
	return s.day
}

// Seek moves the clock to day, clamped to the project length.
func (s *Simulator) Seek(day float64, now time.Time) {
	s.day = clamp(day, 0, float64(s.total))
	if s.state == Running {
		if s.day >= float64(s.total) {
			s.Stop()
			return
		}
		s.anchor(now)
	}
}

// SetTotal adopts a new project length after the schedule changed, keeping
// the current day where possible.
func (s *Simulator) SetTotal(total int, now time.Time) {
	if total < 0 {
		total = 0
	}
	s.total = total
	if total == 0 {
		s.Reset()
		return
	}
	s.Seek(s.day, now)
}

// Restore loads persisted playback state. A running state is resumed from its
// original reference and immediately ticked to now.
func (s *Simulator) Restore(day float64, running bool, reference, now time.Time) {
	s.Stop()
	s.day = clamp(day, 0, float64(s.total))
	if !running || s.total == 0 || reference.IsZero() {
		return
	}
	s.state = Running
	s.reference = reference
	s.Tick(now)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
