package assign

import "math"

// Assignment is one resolved (observation, prediction) pair. Prediction
// is -1 when the observation was left unmatched (e.g. gated out by the
// distance threshold).
type Assignment struct {
	Observation int
	Prediction  int
	Cost        float64
}

// Assigner solves the bipartite matching between observations and
// predictions given a dense cost matrix, gated by maxCost (any pairing
// whose cost exceeds maxCost is treated as unmatchable).
type Assigner interface {
	Solve(cost [][]float64, maxCost float64) []Assignment
}

// Hungarian solves minimum-cost bipartite assignment via the
// Hungarian/Munkres algorithm over an internally padded, integer-scaled
// cost matrix (spec.md §4.9, grounded on original_source's
// Hungarian.hpp). Ties are broken deterministically: smaller observation
// index first, then smaller prediction index, by construction of the
// padding and iteration order below.
type Hungarian struct {
	// Scale converts a float64 cost to an integer unit for the solver's
	// internal arithmetic (spec.md's AssignmentCostScale).
	Scale float64
}

// NewHungarian returns a Hungarian assigner with the given integer cost
// scale factor.
func NewHungarian(scale float64) *Hungarian {
	if scale <= 0 {
		scale = 1000.0
	}
	return &Hungarian{Scale: scale}
}

// Solve computes the minimum-cost assignment. The cost matrix is padded
// to square with sentinel cost maxFeasibleCost*4+1 so that unmatched rows
// or columns are assigned to dummy entries instead of distorting real
// pairings; dummy assignments are filtered out of the result and every
// pairing whose original cost exceeds maxCost is reported unmatched
// (Prediction = -1).
func (h *Hungarian) Solve(cost [][]float64, maxCost float64) []Assignment {
	nObs := len(cost)
	if nObs == 0 {
		return nil
	}
	nPred := len(cost[0])
	n := nObs
	if nPred > n {
		n = nPred
	}

	maxFeasible := 0.0
	for _, row := range cost {
		for _, c := range row {
			if c < Infeasible && c > maxFeasible {
				maxFeasible = c
			}
		}
	}
	sentinel := maxFeasible*4 + 1

	scale := h.Scale
	if scale <= 0 {
		scale = 1000.0
	}

	square := make([][]int64, n)
	for i := 0; i < n; i++ {
		square[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			c := sentinel
			if i < nObs && j < nPred {
				c = cost[i][j]
				if c >= Infeasible {
					c = sentinel
				}
			}
			square[i][j] = int64(math.Round(c * scale))
		}
	}

	rowMatch, _ := munkres(square)

	out := make([]Assignment, 0, nObs)
	for i := 0; i < nObs; i++ {
		j := rowMatch[i]
		if j < 0 || j >= nPred {
			out = append(out, Assignment{Observation: i, Prediction: -1, Cost: Infeasible})
			continue
		}
		c := cost[i][j]
		if c > maxCost {
			out = append(out, Assignment{Observation: i, Prediction: -1, Cost: c})
			continue
		}
		out = append(out, Assignment{Observation: i, Prediction: j, Cost: c})
	}
	return out
}

// munkres runs the Kuhn-Munkres algorithm on a square integer cost
// matrix, returning rowMatch[i] = matched column for row i (and the
// symmetric colMatch). Implementation follows the classic O(n^3)
// potential-based formulation (the same shape original_source's
// Hungarian.hpp hand-rolls, since no min-cost bipartite matcher is
// available in the dependency set this module draws from).
func munkres(cost [][]int64) (rowMatch, colMatch []int) {
	n := len(cost)
	const inf = int64(1) << 60

	u := make([]int64, n+1)
	v := make([]int64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j (1-indexed columns, 0 = unmatched sentinel)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minV := make([]int64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minV[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minV[j] {
					minV[j] = cur
					way[j] = j0
				}
				if minV[j] < delta {
					delta = minV[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minV[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowMatch = make([]int, n)
	colMatch = make([]int, n)
	for i := range rowMatch {
		rowMatch[i] = -1
	}
	for j := range colMatch {
		colMatch[j] = -1
	}
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rowMatch[p[j]-1] = j - 1
			colMatch[j-1] = p[j] - 1
		}
	}
	return rowMatch, colMatch
}
