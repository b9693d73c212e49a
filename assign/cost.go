// Package assign implements the assignment problem between predicted
// states and observations (spec.md §4.9's per-iteration matching step),
// grounded on original_source's CostFunctions.hpp and Hungarian.hpp.
package assign

import (
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/trackkit/trackkit"
)

// CostFunction scores a predicted state against an observation's feature
// vector, with the gap length (in frames) available for gap-dependent
// costs. Lower is better; a value >= Infeasible marks the pair unmatchable.
type CostFunction func(predicted trackkit.FilterState, observation []float64, gapFrames int) float64

// Infeasible marks a cost as too large to ever be chosen by the solver.
const Infeasible = math.MaxFloat64 / 4

// MahalanobisCost builds the default cost function: Mahalanobis distance
// between the predicted measurement H*x and the observation, under
// innovation covariance S = H P H^T + R.
func MahalanobisCost(h, r *mat64.Dense) CostFunction {
	return func(predicted trackkit.FilterState, observation []float64, _ int) float64 {
		n, stateSize := h.Dims()
		x := mat64.NewDense(stateSize, 1, predicted.Mean)

		var hx mat64.Dense
		hx.Mul(h, x)

		innovation := mat64.NewDense(n, 1, observation)
		innovation.Sub(innovation, &hx)

		var hp, s mat64.Dense
		hp.Mul(h, predicted.Covariance)
		s.Mul(&hp, h.T())
		s.Add(&s, r)

		var sInv mat64.Dense
		if err := sInv.Inverse(&s); err != nil {
			return Infeasible
		}

		var tmp, md mat64.Dense
		tmp.Mul(innovation.T(), &sInv)
		md.Mul(&tmp, innovation)

		d2 := md.At(0, 0)
		if d2 < 0 || math.IsNaN(d2) {
			return Infeasible
		}
		return math.Sqrt(d2)
	}
}

// EuclideanCost is a cheap substitute for Mahalanobis distance: the
// unweighted L2 distance between predicted measurement and observation,
// used when no R matrix is available or when a gating pre-filter doesn't
// need the full covariance-aware cost.
func EuclideanCost(h *mat64.Dense) CostFunction {
	return func(predicted trackkit.FilterState, observation []float64, _ int) float64 {
		n, stateSize := h.Dims()
		x := mat64.NewDense(stateSize, 1, predicted.Mean)
		var hx mat64.Dense
		hx.Mul(h, x)

		var sum float64
		for i := 0; i < n; i++ {
			d := observation[i] - hx.At(i, 0)
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}

// DynamicsAwareCost scores a transition using Mahalanobis distance plus
// velocity-consistency and implied-acceleration penalties, for gap spans
// longer than a single frame where the raw position residual alone
// under-penalizes physically implausible jumps (grounded on
// createDynamicsAwareCostFunction in CostFunctions.hpp).
//
// positionOffset/velocityOffset locate the position and velocity blocks
// within the state vector (e.g. for a Kinematic2D feature at state offset
// 0: positionOffset=0, velocityOffset=2, dims=2).
func DynamicsAwareCost(h, r *mat64.Dense, positionOffset, velocityOffset, dims int, dt, beta, gamma, lambdaGap float64) CostFunction {
	mahalanobis := MahalanobisCost(h, r)
	return func(predicted trackkit.FilterState, observation []float64, gapFrames int) float64 {
		base := mahalanobis(predicted, observation, gapFrames)
		if base >= Infeasible {
			return Infeasible
		}

		k := float64(gapFrames)
		if k <= 0 {
			k = 1
		}
		span := k * dt

		var vImplSq, vPredDiffSq, aImplSq float64
		for i := 0; i < dims; i++ {
			zPos := observation[positionOffset+i]
			xPos := predicted.Mean[positionOffset+i]
			vImpl := (zPos - xPos) / span
			vPred := predicted.Mean[velocityOffset+i]
			vImplSq += vImpl * vImpl
			vPredDiffSq += (vImpl - vPred) * (vImpl - vPred)
			aImpl := 2 * (zPos - xPos) / (span * span)
			aImplSq += aImpl * aImpl
		}
		_ = vImplSq

		velocityPenalty := beta * 0.5 * vPredDiffSq
		accelPenalty := gamma * 0.5 * aImplSq
		gapPenalty := lambdaGap * k

		return base + velocityPenalty + accelPenalty + gapPenalty
	}
}
