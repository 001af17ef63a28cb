package timeline

import "github.com/rcliao/timeline/internal/schedule"

// Progress is the completed fraction of a task that starts on start and
// lasts duration days, at the given simulated day.
func Progress(day float64, start, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return clamp(day-float64(start), 0, float64(duration)) / float64(duration)
}

// Item identifies a task to render, in display order.
type Item struct {
	ID   string
	Name string
}

type TaskFrame struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Start    int     `json:"start"`
	Finish   int     `json:"finish"`
	Duration int     `json:"duration"`
	Progress float64 `json:"progress"`
	Resolved bool    `json:"resolved"`
	Critical bool    `json:"critical"`
}

// Frame is what a renderer needs to draw one instant of the timeline.
type Frame struct {
	Day     float64     `json:"currentDay"`
	Total   int         `json:"totalDuration"`
	State   State       `json:"state"`
	Overall float64     `json:"overall"`
	Tasks   []TaskFrame `json:"tasks"`
}

// BuildFrame computes per-task progress for items at day. Tasks the schedule
// could not resolve are reported with Resolved false and zero progress.
func BuildFrame(day float64, state State, sched *schedule.Schedule, items []Item) Frame {
	frame := Frame{
		Day:   day,
		Total: sched.TotalDuration(),
		State: state,
		Tasks: make([]TaskFrame, 0, len(items)),
	}

	var done, planned float64
	for _, item := range items {
		tf := TaskFrame{ID: item.ID, Name: item.Name}
		tf.Duration, _ = sched.Duration(item.ID)
		start, err := sched.Start(item.ID)
		if err == nil {
			tf.Resolved = true
			tf.Start = start
			tf.Finish = start + tf.Duration
			tf.Progress = Progress(day, start, tf.Duration)
			tf.Critical = sched.IsCritical(item.ID)
			done += tf.Progress * float64(tf.Duration)
			planned += float64(tf.Duration)
		}
		frame.Tasks = append(frame.Tasks, tf)
	}
	if planned > 0 {
		frame.Overall = done / planned
	}
	return frame
}

// Frame renders the simulator's current instant.
func (s *Simulator) Frame(sched *schedule.Schedule, items []Item) Frame {
	return BuildFrame(s.day, s.state, sched, items)
}
