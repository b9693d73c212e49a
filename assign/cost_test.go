package assign

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"

	"github.com/trackkit/trackkit"
)

func TestMahalanobisCostSqrtHalfExample(t *testing.T) {
	h := mat64.NewDense(1, 1, []float64{1})
	r := mat64.NewDense(1, 1, []float64{2})
	cost := MahalanobisCost(h, r)

	predicted := trackkit.FilterState{Mean: []float64{0}, Covariance: mat64.NewDense(1, 1, []float64{0})}
	got := cost(predicted, []float64{1}, 1)

	assert.True(t, floats.EqualWithinAbs(got, math.Sqrt(0.5), 1e-9))
}

func TestMahalanobisCostZeroAtExactMatch(t *testing.T) {
	h := mat64.NewDense(2, 2, []float64{1, 0, 0, 1})
	r := mat64.NewDense(2, 2, []float64{1, 0, 0, 1})
	cost := MahalanobisCost(h, r)

	predicted := trackkit.FilterState{Mean: []float64{3, 4}, Covariance: mat64.NewDense(2, 2, nil)}
	got := cost(predicted, []float64{3, 4}, 1)
	assert.True(t, floats.EqualWithinAbs(got, 0, 1e-9))
}

func TestEuclideanCost(t *testing.T) {
	h := mat64.NewDense(2, 2, []float64{1, 0, 0, 1})
	cost := EuclideanCost(h)
	predicted := trackkit.FilterState{Mean: []float64{0, 0}}
	got := cost(predicted, []float64{3, 4}, 1)
	assert.True(t, floats.EqualWithinAbs(got, 5.0, 1e-9))
}

func TestDynamicsAwareCostPositiveForShortAndLongGaps(t *testing.T) {
	h := mat64.NewDense(2, 4, []float64{1, 0, 0, 0, 0, 1, 0, 0})
	r := mat64.NewDense(2, 2, []float64{1, 0, 0, 1})
	costFn := DynamicsAwareCost(h, r, 0, 2, 2, 1.0, 1.0, 1.0, 0.1)

	predicted := trackkit.FilterState{
		Mean:       []float64{0, 0, 0, 0},
		Covariance: mat64.NewDense(4, 4, nil),
	}
	nearGap := costFn(predicted, []float64{1, 1}, 1)
	farGap := costFn(predicted, []float64{1, 1}, 10)
	// A fixed displacement spread over a longer gap implies smaller
	// velocity/acceleration, but the per-frame gap penalty still grows.
	assert.Greater(t, farGap, 0.0)
	assert.Greater(t, nearGap, 0.0)
}

func TestMahalanobisCostInfeasibleOnSingularInnovation(t *testing.T) {
	h := mat64.NewDense(2, 2, []float64{1, 0, 0, 0})
	r := mat64.NewDense(2, 2, nil)
	cost := MahalanobisCost(h, r)
	predicted := trackkit.FilterState{Mean: []float64{0, 0}, Covariance: mat64.NewDense(2, 2, nil)}
	got := cost(predicted, []float64{1, 1}, 1)
	assert.Equal(t, Infeasible, got)
}
