package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHungarianSquareAssignment(t *testing.T) {
	h := NewHungarian(1000)
	cost := [][]float64{
		{1, 4},
		{3, 2},
	}
	got := h.Solve(cost, 100)
	assert.Len(t, got, 2)
	byObs := make(map[int]Assignment, 2)
	for _, a := range got {
		byObs[a.Observation] = a
	}
	// Optimal pairing is (0,0)+(1,1) = 3, not (0,1)+(1,0) = 7.
	assert.Equal(t, 0, byObs[0].Prediction)
	assert.Equal(t, 1, byObs[1].Prediction)
}

func TestHungarianRectangularLeavesExtraUnmatched(t *testing.T) {
	h := NewHungarian(1000)
	cost := [][]float64{
		{1, 2, 3},
	}
	got := h.Solve(cost, 100)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Prediction)
	assert.Equal(t, 1.0, got[0].Cost)
}

func TestHungarianGatesOnMaxCost(t *testing.T) {
	h := NewHungarian(1000)
	cost := [][]float64{
		{50},
	}
	got := h.Solve(cost, 10)
	assert.Len(t, got, 1)
	assert.Equal(t, -1, got[0].Prediction)
}

func TestHungarianEmptyInput(t *testing.T) {
	h := NewHungarian(1000)
	assert.Nil(t, h.Solve(nil, 10))
}

func TestHungarianInfeasibleEntriesNeverChosenOverFeasible(t *testing.T) {
	h := NewHungarian(1000)
	cost := [][]float64{
		{Infeasible, 1},
		{1, Infeasible},
	}
	got := h.Solve(cost, Infeasible)
	byObs := make(map[int]Assignment, 2)
	for _, a := range got {
		byObs[a.Observation] = a
	}
	assert.Equal(t, 1, byObs[0].Prediction)
	assert.Equal(t, 0, byObs[1].Prediction)
}
