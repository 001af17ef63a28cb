package schedule

import "container/heap"

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm. indeg counts each node's dependencies and
// is consumed. The ready queue is a min-heap on input index, so the order is
// deterministic. Nodes caught in a cycle never reach zero in-degree and are
// missing from the result.
func topoOrder(indeg []int, dependents [][]int) []int {
	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range dependents[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle extracts one cycle among the nodes Kahn's pass could not emit,
// following "depends on" edges. The path starts and ends on the same id.
func (s *Schedule) findCycle(deps [][]int, emitted []int) []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(s.nodes))
	for _, i := range emitted {
		color[i] = black
	}

	var stack []int
	var cycle []int

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range deps[u] {
			switch color[v] {
			case white:
				if visit(v) {
					return true
				}
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == v {
						cycle = append(append(cycle, stack[k:]...), v)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}

	for i := range s.nodes {
		if color[i] == white && visit(i) {
			break
		}
	}

	path := make([]string, len(cycle))
	for k, i := range cycle {
		path[k] = s.nodes[i].ID
	}
	return path
}
