package kalman

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/trackkit/trackkit"
)

// Measurement is an observation already converted into a feature vector,
// mirroring original_source's IFilter.hpp Measurement struct.
type Measurement struct {
	Vector []float64
}

// StepRecord pairs a filtered (posterior) state with the predicted
// (prior) state it was updated from at the same step, the minimal history
// RTS smoothing needs to walk backward through a forward pass.
type StepRecord struct {
	Filtered  trackkit.FilterState
	Predicted trackkit.FilterState
	// F is the transition matrix used to produce Predicted from the
	// previous step's Filtered, needed by the smoother gain computation.
	F *mat64.Dense
}

// Filter is a linear Kalman filter over a fixed F/H/Q/R model. A fresh
// clone is taken per tracked group (original_source's IFilter::clone
// contract), since the filter itself is stateless beyond its model and
// current belief.
type Filter struct {
	F, H, Q, R *mat64.Dense
	state      trackkit.FilterState
}

// New builds a filter from a fixed linear model. The caller owns F/H/Q/R
// construction, typically via BuildAllMatrices.
func New(f, h, q, r *mat64.Dense) *Filter {
	return &Filter{F: f, H: h, Q: q, R: r}
}

// Initialize sets the filter's current belief.
func (k *Filter) Initialize(initial trackkit.FilterState) {
	k.state = initial
}

// CurrentState returns the filter's current belief without advancing it.
func (k *Filter) CurrentState() trackkit.FilterState { return k.state }

// Predict advances the current belief one time step under the motion
// model: x' = F x, P' = F P F^T + Q.
func (k *Filter) Predict() trackkit.FilterState {
	n, _ := k.F.Dims()
	x := mat64.NewDense(n, 1, k.state.Mean)

	var xPred mat64.Dense
	xPred.Mul(k.F, x)

	var fp, fpft mat64.Dense
	fp.Mul(k.F, k.state.Covariance)
	fpft.Mul(&fp, k.F.T())
	fpft.Add(&fpft, k.Q)

	mean := make([]float64, n)
	for i := 0; i < n; i++ {
		mean[i] = xPred.At(i, 0)
	}
	cov := mat64.NewDense(n, n, nil)
	cov.Clone(&fpft)

	k.state = trackkit.FilterState{Mean: mean, Covariance: cov}
	return k.state
}

// Update corrects a predicted state with a measurement: standard Kalman
// gain correction, K = P H^T (H P H^T + R)^-1.
func (k *Filter) Update(predicted trackkit.FilterState, m Measurement) (trackkit.FilterState, error) {
	n, _ := k.H.Dims() // measurement size (rows of H)
	stateSize := len(predicted.Mean)

	x := mat64.NewDense(stateSize, 1, predicted.Mean)
	z := mat64.NewDense(n, 1, m.Vector)

	var hx mat64.Dense
	hx.Mul(k.H, x)

	innovation := mat64.NewDense(n, 1, nil)
	innovation.Sub(z, &hx)

	var hp, s mat64.Dense
	hp.Mul(k.H, predicted.Covariance)
	s.Mul(&hp, k.H.T())
	s.Add(&s, k.R)

	sInv, err := invertStabilized(&s)
	if err != nil {
		return trackkit.FilterState{}, fmt.Errorf("kalman: update: %w", err)
	}

	var pht, gain mat64.Dense
	pht.Mul(predicted.Covariance, k.H.T())
	gain.Mul(&pht, sInv)

	var correction mat64.Dense
	correction.Mul(&gain, innovation)

	mean := make([]float64, stateSize)
	for i := 0; i < stateSize; i++ {
		mean[i] = x.At(i, 0) + correction.At(i, 0)
	}

	ident := trackkit.IdentityCovariance(stateSize, 1.0)
	var gh, ikh, cov mat64.Dense
	gh.Mul(&gain, k.H)
	ikh.Sub(ident, &gh)
	cov.Mul(&ikh, predicted.Covariance)

	out := trackkit.FilterState{Mean: mean, Covariance: mat64.NewDense(stateSize, stateSize, nil)}
	out.Covariance.Clone(&cov)
	k.state = out
	return out, nil
}

// Smooth runs Rauch-Tung-Striebel smoothing backward over a forward
// pass's step history, per original_source IFilter::smooth.
func (k *Filter) Smooth(steps []StepRecord) ([]trackkit.FilterState, error) {
	n := len(steps)
	if n == 0 {
		return nil, nil
	}
	out := make([]trackkit.FilterState, n)
	out[n-1] = steps[n-1].Filtered

	for t := n - 2; t >= 0; t-- {
		filtered := steps[t].Filtered
		predNext := steps[t+1].Predicted
		smoothNext := out[t+1]
		F := steps[t+1].F

		predInv, err := invertStabilized(predNext.Covariance)
		if err != nil {
			return nil, fmt.Errorf("kalman: smooth step %d: %w", t, err)
		}

		var pft, c mat64.Dense
		pft.Mul(filtered.Covariance, F.T())
		c.Mul(&pft, predInv)

		stateSize := len(filtered.Mean)
		xFilt := mat64.NewDense(stateSize, 1, filtered.Mean)
		xPred := mat64.NewDense(stateSize, 1, predNext.Mean)
		xSmoothNext := mat64.NewDense(stateSize, 1, smoothNext.Mean)

		var diff, delta mat64.Dense
		diff.Sub(xSmoothNext, xPred)
		delta.Mul(&c, &diff)

		mean := make([]float64, stateSize)
		for i := 0; i < stateSize; i++ {
			mean[i] = xFilt.At(i, 0) + delta.At(i, 0)
		}

		var covDiff, covDelta, ct, cov mat64.Dense
		covDiff.Sub(smoothNext.Covariance, predNext.Covariance)
		covDelta.Mul(&c, &covDiff)
		ct.Mul(&covDelta, c.T())
		cov.Add(filtered.Covariance, &ct)

		state := trackkit.FilterState{Mean: mean, Covariance: mat64.NewDense(stateSize, stateSize, nil)}
		state.Covariance.Clone(&cov)
		out[t] = state
	}
	return out, nil
}

// Clone returns an independent filter sharing the same fixed model,
// matching original_source's IFilter::clone (the tracker holds one
// prototype and clones it per new group).
func (k *Filter) Clone() *Filter {
	return &Filter{F: k.F, H: k.H, Q: k.Q, R: k.R, state: k.state}
}

// invertStabilized inverts a symmetric matrix via Cholesky solve first
// (spec.md §4.6); when the matrix isn't positive-definite (near-singular
// innovation or prediction covariances occur with degenerate measurement
// noise configs), it falls back to an SVD pseudo-inverse that zeroes
// singular values below 1e-10×σ_max, per spec.md §9.
func invertStabilized(a *mat64.Dense) (*mat64.Dense, error) {
	n, _ := a.Dims()
	sym := toSymDense(a, n)

	if inv, ok := choleskyInverse(sym, n); ok {
		return inv, nil
	}
	if inv, ok := svdPseudoInverse(a, n); ok {
		return inv, nil
	}
	return nil, fmt.Errorf("matrix not invertible via Cholesky or SVD pseudo-inverse")
}

// toSymDense symmetrizes a (averaging off-diagonal pairs to absorb
// floating-point asymmetry from repeated Mul/Add/Sub) into the SymDense
// shape mat64.Cholesky requires.
func toSymDense(a *mat64.Dense, n int) *mat64.SymDense {
	sym := mat64.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return sym
}

func choleskyInverse(sym *mat64.SymDense, n int) (*mat64.Dense, bool) {
	var chol mat64.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, false
	}
	ident := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ident.Set(i, i, 1)
	}
	var inv mat64.Dense
	if err := chol.SolveTo(&inv, ident); err != nil || !finite(&inv) {
		return nil, false
	}
	out := mat64.NewDense(n, n, nil)
	out.Clone(&inv)
	return out, true
}

// svdPseudoInverse computes the Moore-Penrose pseudo-inverse via the
// singular value decomposition, discarding singular values below
// 1e-10×σ_max as numerically zero (spec.md §9's stated tolerance).
func svdPseudoInverse(a *mat64.Dense, n int) (*mat64.Dense, bool) {
	var svd mat64.SVD
	if ok := svd.Factorize(a, mat64.SVDFull); !ok {
		return nil, false
	}
	values := svd.Values(nil)
	var u, v mat64.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	sigmaMax := 0.0
	for _, s := range values {
		if s > sigmaMax {
			sigmaMax = s
		}
	}
	tol := 1e-10 * sigmaMax

	sInv := mat64.NewDense(n, n, nil)
	for i, s := range values {
		if s > tol {
			sInv.Set(i, i, 1/s)
		}
	}

	var vsInv, pinv mat64.Dense
	vsInv.Mul(&v, sInv)
	pinv.Mul(&vsInv, u.T())

	if !finite(&pinv) {
		return nil, false
	}
	out := mat64.NewDense(n, n, nil)
	out.Clone(&pinv)
	return out, true
}

func finite(m *mat64.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
