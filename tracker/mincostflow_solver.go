package tracker

// flowArc is one directed arc in the min-cost-flow graph: to, capacity
// remaining, cost per unit, and the index of its reverse arc in the same
// node's adjacency list (residual-graph convention).
type flowArc struct {
	to, cap int
	cost    int64
	rev     int
	real    bool // false for the reverse/residual twin added by addArc
}

// flowGraph is an adjacency-list min-cost-flow graph solved by successive
// shortest augmenting paths via Bellman-Ford (costs may be negative,
// arising from predicted-vs-observed cost differences, but the graph is
// a DAG plus source/sink so no negative cycles occur).
type flowGraph struct {
	arcs [][]flowArc
}

func newFlowGraph(n int) *flowGraph {
	return &flowGraph{arcs: make([][]flowArc, n)}
}

func (g *flowGraph) addArc(from, to, cap int, cost int64) {
	g.arcs[from] = append(g.arcs[from], flowArc{to: to, cap: cap, cost: cost, rev: len(g.arcs[to]), real: true})
	g.arcs[to] = append(g.arcs[to], flowArc{to: from, cap: 0, cost: -cost, rev: len(g.arcs[from]) - 1, real: false})
}

// minCostFlow pushes up to maxFlow units of flow from s to t, minimizing
// total cost, via repeated Bellman-Ford shortest-path augmentation (the
// hand-rolled successive-shortest-augmenting-path solver SPEC_FULL.md
// names in place of a vendored min-cost-flow library, since none of the
// example pack's dependencies expose one for Go).
func (g *flowGraph) minCostFlow(s, t, maxFlow int) (flow int, cost int64) {
	n := len(g.arcs)
	const inf = int64(1) << 60

	for flow < maxFlow {
		dist := make([]int64, n)
		inQueue := make([]bool, n)
		prevNode := make([]int, n)
		prevArc := make([]int, n)
		for i := range dist {
			dist[i] = inf
			prevNode[i] = -1
		}
		dist[s] = 0
		queue := []int{s}
		inQueue[s] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			inQueue[u] = false
			for i, a := range g.arcs[u] {
				if a.cap <= 0 {
					continue
				}
				nd := dist[u] + a.cost
				if nd < dist[a.to] {
					dist[a.to] = nd
					prevNode[a.to] = u
					prevArc[a.to] = i
					if !inQueue[a.to] {
						queue = append(queue, a.to)
						inQueue[a.to] = true
					}
				}
			}
		}
		if dist[t] >= inf {
			break
		}

		push := maxFlow - flow
		for v := t; v != s; {
			u := prevNode[v]
			a := g.arcs[u][prevArc[v]]
			if a.cap < push {
				push = a.cap
			}
			v = u
		}
		for v := t; v != s; {
			u := prevNode[v]
			idx := prevArc[v]
			g.arcs[u][idx].cap -= push
			g.arcs[u][g.arcs[u][idx].rev].cap += push
			v = u
		}
		flow += push
		cost += dist[t] * int64(push)
	}
	return flow, cost
}

// path reconstructs the node sequence source->...->sink carrying flow,
// by following saturated forward arcs in the final residual graph. Only
// meaningful after minCostFlow has pushed exactly one unit (the tracker's
// per-group flow problems always have supply 1).
func (g *flowGraph) path(s, t int) []int {
	visited := make([]bool, len(g.arcs))
	var walk func(u int) []int
	walk = func(u int) []int {
		if u == t {
			return []int{u}
		}
		visited[u] = true
		for _, a := range g.arcs[u] {
			// Every real arc here has capacity exactly 1 (single-unit
			// flow), so a drained real arc (cap 0) is exactly the one
			// that carried the unit of flow.
			if a.real && a.cap == 0 && !visited[a.to] {
				if rest := walk(a.to); rest != nil {
					return append([]int{u}, rest...)
				}
			}
		}
		return nil
	}
	return walk(s)
}
