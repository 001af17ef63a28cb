package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamond() []Node {
	return []Node{
		{ID: "A", Duration: 1},
		{ID: "B", Duration: 2, Dependencies: []string{"A"}},
		{ID: "C", Duration: 1, Dependencies: []string{"A"}},
		{ID: "D", Duration: 1, Dependencies: []string{"B", "C"}},
	}
}

func mustStart(t *testing.T, s *Schedule, id string) int {
	t.Helper()
	start, err := s.Start(id)
	require.NoError(t, err, id)
	return start
}

func TestProject_Diamond(t *testing.T) {
	s, err := Project(diamond(), PolicyStrict)
	require.NoError(t, err)

	assert.Equal(t, 0, mustStart(t, s, "A"))
	assert.Equal(t, 1, mustStart(t, s, "B"))
	assert.Equal(t, 1, mustStart(t, s, "C"))
	assert.Equal(t, 3, mustStart(t, s, "D"))
	assert.Equal(t, 4, s.TotalDuration())
	assert.Equal(t, []string{"A", "B", "D"}, s.CriticalPath())
	assert.True(t, s.IsCritical("B"))
	assert.False(t, s.IsCritical("C"))

	slack, err := s.Slack("C")
	require.NoError(t, err)
	assert.Equal(t, 1, slack)
	slack, err = s.Slack("B")
	require.NoError(t, err)
	assert.Equal(t, 0, slack)

	finish, err := s.Finish("D")
	require.NoError(t, err)
	assert.Equal(t, 4, finish)
	assert.Empty(t, s.Unresolved())
}

func TestProject_StartIsMaxOfDependencyFinishes(t *testing.T) {
	nodes := []Node{
		{ID: "walls", Duration: 3},
		{ID: "floor", Duration: 5},
		{ID: "wiring", Duration: 2, Dependencies: []string{"walls"}},
		{ID: "paint", Duration: 4, Dependencies: []string{"wiring", "floor"}},
		{ID: "clean", Duration: 1, Dependencies: []string{"paint", "walls"}},
		{ID: "sign", Duration: 1},
	}
	s, err := Project(nodes, PolicyStrict)
	require.NoError(t, err)

	byID := make(map[string]Node)
	for _, n := range nodes {
		byID[n.ID] = n
	}

	maxFinish := 0
	for _, n := range nodes {
		start := mustStart(t, s, n.ID)
		if len(n.Dependencies) == 0 {
			assert.Zero(t, start, n.ID)
		} else {
			want := 0
			for _, dep := range n.Dependencies {
				if f := mustStart(t, s, dep) + byID[dep].Duration; f > want {
					want = f
				}
			}
			assert.Equal(t, want, start, n.ID)
		}

		finish := start + n.Duration
		assert.GreaterOrEqual(t, s.TotalDuration(), finish, n.ID)
		if finish > maxFinish {
			maxFinish = finish
		}
	}
	assert.Equal(t, maxFinish, s.TotalDuration())
	assert.Equal(t, 10, s.TotalDuration())
	assert.Equal(t, []string{"walls", "wiring", "paint", "clean"}, s.CriticalPath())
}

func TestProject_Empty(t *testing.T) {
	s, err := Project(nil, PolicyStrict)
	require.NoError(t, err)

	assert.Equal(t, 0, s.TotalDuration())
	assert.Empty(t, s.CriticalPath())
	assert.Empty(t, s.Order())
	assert.Equal(t, 0, s.Len())
}

func TestProject_Cycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		path  []string
	}{
		{
			name: "two tasks",
			nodes: []Node{
				{ID: "A", Duration: 1, Dependencies: []string{"B"}},
				{ID: "B", Duration: 1, Dependencies: []string{"A"}},
			},
			path: []string{"A", "B", "A"},
		},
		{
			name: "self loop",
			nodes: []Node{
				{ID: "A", Duration: 1, Dependencies: []string{"A"}},
			},
			path: []string{"A", "A"},
		},
		{
			name: "behind an acyclic prefix",
			nodes: []Node{
				{ID: "root", Duration: 1},
				{ID: "x", Duration: 1, Dependencies: []string{"root", "z"}},
				{ID: "y", Duration: 1, Dependencies: []string{"x"}},
				{ID: "z", Duration: 1, Dependencies: []string{"y"}},
			},
			path: []string{"x", "z", "y", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, policy := range []Policy{PolicyStrict, PolicyLenient} {
				_, err := Project(tt.nodes, policy)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrCycle))

				var graphErr *GraphError
				require.True(t, errors.As(err, &graphErr))
				assert.Equal(t, tt.path, graphErr.Path)
			}
		})
	}
}

func TestProject_MissingDependencyStrict(t *testing.T) {
	nodes := []Node{
		{ID: "B", Duration: 2, Dependencies: []string{"A"}},
	}
	_, err := Project(nodes, PolicyStrict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDependency)

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "B", graphErr.TaskID)
	assert.Equal(t, "A", graphErr.Ref)
	assert.Contains(t, err.Error(), "task B depends on A")
}

func TestProject_MissingDependencyLenient(t *testing.T) {
	// diamond with A removed but the references left in place
	nodes := diamond()[1:]
	nodes = append(nodes, Node{ID: "E", Duration: 3})

	s, err := Project(nodes, PolicyLenient)
	require.NoError(t, err)

	for _, id := range []string{"B", "C", "D"} {
		assert.False(t, s.Resolved(id), id)
		_, err := s.Start(id)
		assert.ErrorIs(t, err, ErrUnresolved, id)
	}
	assert.True(t, s.Resolved("E"))
	assert.Equal(t, 0, mustStart(t, s, "E"))
	assert.Equal(t, 3, s.TotalDuration())
	assert.Equal(t, []string{"E"}, s.CriticalPath())

	unresolved := s.Unresolved()
	require.Len(t, unresolved, 3)
	assert.Equal(t, Unresolved{TaskID: "B", Missing: []string{"A"}}, unresolved[0])
	assert.Equal(t, Unresolved{TaskID: "C", Missing: []string{"A"}}, unresolved[1])
	assert.Equal(t, "D", unresolved[2].TaskID)
	assert.Equal(t, []string{"B", "C"}, unresolved[2].BlockedBy)
	assert.Contains(t, unresolved[2].Err().Error(), "blocked by unresolved B, C")
}

func TestProject_InvalidNodes(t *testing.T) {
	_, err := Project([]Node{{ID: "A", Duration: 0}}, PolicyStrict)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = Project([]Node{{ID: "", Duration: 1}}, PolicyStrict)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = Project([]Node{{ID: "A", Duration: 1}, {ID: "A", Duration: 2}}, PolicyStrict)
	assert.ErrorIs(t, err, ErrDuplicateTask)
}

func TestSchedule_UnknownTask(t *testing.T) {
	s, err := Project(diamond(), PolicyStrict)
	require.NoError(t, err)

	_, err = s.Start("Z")
	assert.ErrorIs(t, err, ErrUnknownTask)
	_, err = s.Duration("Z")
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.False(t, s.Resolved("Z"))
}

func TestSchedule_OrderIsTopologicalAndStable(t *testing.T) {
	nodes := []Node{
		{ID: "D", Duration: 1, Dependencies: []string{"B", "C"}},
		{ID: "C", Duration: 1, Dependencies: []string{"A"}},
		{ID: "B", Duration: 2, Dependencies: []string{"A"}},
		{ID: "A", Duration: 1},
		{ID: "E", Duration: 1},
	}
	s, err := Project(nodes, PolicyStrict)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B", "D", "E"}, s.Order())

	again, err := Project(nodes, PolicyStrict)
	require.NoError(t, err)
	assert.Equal(t, s.Order(), again.Order())
	assert.Equal(t, s.CriticalPath(), again.CriticalPath())
}

func TestSchedule_DuplicateDependencyCountsOnce(t *testing.T) {
	nodes := []Node{
		{ID: "A", Duration: 2},
		{ID: "B", Duration: 1, Dependencies: []string{"A", "A"}},
	}
	s, err := Project(nodes, PolicyStrict)
	require.NoError(t, err)
	assert.Equal(t, 2, mustStart(t, s, "B"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(diamond(), PolicyStrict))
	assert.ErrorIs(t, Validate([]Node{{ID: "A", Duration: 1, Dependencies: []string{"A"}}}, PolicyLenient), ErrCycle)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("lenient")
	require.NoError(t, err)
	assert.Equal(t, PolicyLenient, p)
	assert.Equal(t, "lenient", p.String())

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("ignore")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
