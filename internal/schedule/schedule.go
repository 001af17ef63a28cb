// Package schedule projects a task dependency graph onto a day-based timeline.
//
// Dependencies are finish-to-start with zero lag: a task starts on the day its
// last dependency finishes. Start days come from a single topological pass
// (Kahn's algorithm), which also detects cycles before any start is computed.
package schedule

// Node is the scheduler's view of a task.
type Node struct {
	ID           string
	Duration     int
	Dependencies []string
}

// Schedule is the result of projecting a task set. It is immutable and safe
// for concurrent reads.
type Schedule struct {
	nodes []Node
	index map[string]int

	order      []int
	dependents [][]int
	resolved   []bool
	start      []int
	finish     []int
	latest     []int

	unresolved []Unresolved
	total      int
	critical   []string
}

// Project computes start days for every node. Nodes keep their input order
// as the tie-breaker, so equal inputs always produce equal schedules.
//
// It fails on empty or duplicate ids, non-positive durations and cycles. A
// dependency on an id outside the set fails under PolicyStrict and leaves the
// task unresolved under PolicyLenient.
func Project(nodes []Node, policy Policy) (*Schedule, error) {
	s := &Schedule{
		nodes: append([]Node(nil), nodes...),
		index: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		if n.ID == "" {
			return nil, invalidNode("(empty)", "task id is required")
		}
		if n.Duration < 1 {
			return nil, invalidNode(n.ID, "duration must be positive")
		}
		if _, exists := s.index[n.ID]; exists {
			return nil, &GraphError{Kind: ErrDuplicateTask, TaskID: n.ID}
		}
		s.index[n.ID] = i
	}

	missing := make([][]string, len(nodes))
	deps := make([][]int, len(nodes))
	s.dependents = make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for i, n := range nodes {
		seen := make(map[int]bool, len(n.Dependencies))
		for _, ref := range n.Dependencies {
			j, ok := s.index[ref]
			if !ok {
				if policy == PolicyStrict {
					return nil, missingDependency(n.ID, ref)
				}
				missing[i] = append(missing[i], ref)
				continue
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			deps[i] = append(deps[i], j)
			s.dependents[j] = append(s.dependents[j], i)
			indeg[i]++
		}
	}

	s.order = topoOrder(indeg, s.dependents)
	if len(s.order) < len(nodes) {
		return nil, cycleError(s.findCycle(deps, s.order))
	}

	s.forwardPass(deps, missing)
	s.backwardPass()
	s.critical = s.criticalPath(deps)
	return s, nil
}

// Validate reports whether nodes can be projected under policy.
func Validate(nodes []Node, policy Policy) error {
	_, err := Project(nodes, policy)
	return err
}

func (s *Schedule) forwardPass(deps [][]int, missing [][]string) {
	n := len(s.nodes)
	s.resolved = make([]bool, n)
	s.start = make([]int, n)
	s.finish = make([]int, n)

	for _, i := range s.order {
		var blocked []string
		start := 0
		for _, j := range deps[i] {
			if !s.resolved[j] {
				blocked = append(blocked, s.nodes[j].ID)
				continue
			}
			if s.finish[j] > start {
				start = s.finish[j]
			}
		}
		if len(missing[i]) > 0 || len(blocked) > 0 {
			s.unresolved = append(s.unresolved, Unresolved{
				TaskID:    s.nodes[i].ID,
				Missing:   missing[i],
				BlockedBy: blocked,
			})
			continue
		}
		s.resolved[i] = true
		s.start[i] = start
		s.finish[i] = start + s.nodes[i].Duration
		if s.finish[i] > s.total {
			s.total = s.finish[i]
		}
	}
}

// backwardPass computes latest start days; slack is latest minus earliest.
func (s *Schedule) backwardPass() {
	s.latest = make([]int, len(s.nodes))
	for k := len(s.order) - 1; k >= 0; k-- {
		i := s.order[k]
		if !s.resolved[i] {
			continue
		}
		latestFinish := s.total
		for _, j := range s.dependents[i] {
			if s.resolved[j] && s.latest[j] < latestFinish {
				latestFinish = s.latest[j]
			}
		}
		s.latest[i] = latestFinish - s.nodes[i].Duration
	}
}

// criticalPath walks back from the first task finishing on the last day,
// always through a zero-slack dependency that finishes exactly when the
// current task starts.
func (s *Schedule) criticalPath(deps [][]int) []string {
	if s.total == 0 {
		return nil
	}
	end := -1
	for _, i := range s.order {
		if s.resolved[i] && s.finish[i] == s.total {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}

	var reversed []string
	for cur := end; cur >= 0; {
		reversed = append(reversed, s.nodes[cur].ID)
		next := -1
		for _, j := range deps[cur] {
			if s.resolved[j] && s.finish[j] == s.start[cur] && s.latest[j] == s.start[j] {
				next = j
				break
			}
		}
		cur = next
	}

	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

func (s *Schedule) lookup(id string) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, &GraphError{Kind: ErrUnknownTask, TaskID: id}
	}
	if !s.resolved[i] {
		for _, u := range s.unresolved {
			if u.TaskID == id {
				return 0, u.Err()
			}
		}
	}
	return i, nil
}

// Start returns the earliest day, counted from zero, on which the task can begin.
func (s *Schedule) Start(id string) (int, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.start[i], nil
}

// Finish returns the day on which the task completes.
func (s *Schedule) Finish(id string) (int, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.finish[i], nil
}

// Slack returns how many days the task can slip without moving the total duration.
func (s *Schedule) Slack(id string) (int, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.latest[i] - s.start[i], nil
}

func (s *Schedule) Duration(id string) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, &GraphError{Kind: ErrUnknownTask, TaskID: id}
	}
	return s.nodes[i].Duration, nil
}

// Resolved reports whether the task has a start day.
func (s *Schedule) Resolved(id string) bool {
	i, ok := s.index[id]
	return ok && s.resolved[i]
}

// TotalDuration is the latest finish day over all resolved tasks, and zero
// for an empty task set.
func (s *Schedule) TotalDuration() int {
	return s.total
}

// CriticalPath returns the ids of one longest dependency chain, first task first.
func (s *Schedule) CriticalPath() []string {
	return append([]string(nil), s.critical...)
}

func (s *Schedule) IsCritical(id string) bool {
	for _, c := range s.critical {
		if c == id {
			return true
		}
	}
	return false
}

// Order returns every task id in topological order.
func (s *Schedule) Order() []string {
	ids := make([]string, len(s.order))
	for k, i := range s.order {
		ids[k] = s.nodes[i].ID
	}
	return ids
}

// Unresolved lists the tasks without a start day, in topological order.
func (s *Schedule) Unresolved() []Unresolved {
	return append([]Unresolved(nil), s.unresolved...)
}

func (s *Schedule) Len() int {
	return len(s.nodes)
}
