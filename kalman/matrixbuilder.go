// Package kalman implements the linear Kalman filter and RTS smoother used
// by the tracker (spec.md §4.7/§4.8), grounded on the teacher's own
// mat64-based OrbitEstimate state-transition handling in estimate.go and
// on original_source's KalmanMatrixBuilder.hpp / IFilter.hpp.
package kalman

import (
	"github.com/gonum/matrix/mat64"

	"github.com/trackkit/trackkit/feature"
)

// FeatureNoise is the per-feature noise configuration the matrix builder
// consults when laying out a block of F/H/Q/R for one feature.
type FeatureNoise struct {
	DT                   float64
	ProcessNoisePosition float64
	ProcessNoiseVelocity float64
	StaticProcessNoiseScale float64
	MeasurementNoise     float64
}

// BuildAllMatrices lays out block-diagonal F, H, Q, R matrices for a list
// of features in metadata order, generalizing KalmanMatrixBuilder.hpp's
// fixed 2D-kinematic case to every feature.TemporalType spec.md names.
func BuildAllMatrices(metas []feature.Metadata, noise []FeatureNoise) (F, H, Q, R *mat64.Dense) {
	idx := feature.NewStateIndexMap(metas)
	stateSize := idx.TotalSize()

	measSize := 0
	for _, m := range metas {
		measSize += m.MeasurementSize
	}

	F = mat64.NewDense(stateSize, stateSize, nil)
	H = mat64.NewDense(measSize, stateSize, nil)
	Q = mat64.NewDense(stateSize, stateSize, nil)
	R = mat64.NewDense(measSize, measSize, nil)

	sOffset, mOffset := 0, 0
	for i, m := range metas {
		n := noise[i]
		switch m.TemporalType {
		case feature.Kinematic2D:
			buildKinematicBlock(F, H, Q, R, sOffset, mOffset, 2, n)
		case feature.Kinematic3D:
			buildKinematicBlock(F, H, Q, R, sOffset, mOffset, 3, n)
		case feature.ScalarDynamic:
			for c := 0; c < m.MeasurementSize; c++ {
				buildScalarDynamicBlock(F, H, Q, R, sOffset+2*c, mOffset+c, n)
			}
		case feature.Static:
			buildStaticBlock(F, H, Q, R, sOffset, mOffset, m.MeasurementSize, n)
		default: // Custom: treat as static with no derivatives
			buildStaticBlock(F, H, Q, R, sOffset, mOffset, m.MeasurementSize, n)
		}
		sOffset += m.StateSize
		mOffset += m.MeasurementSize
	}
	return F, H, Q, R
}

// buildKinematicBlock lays out a position+velocity block of dimension k
// (2 for Kinematic2D, 3 for Kinematic3D): state [pos(k), vel(k)],
// measurement pos(k).
func buildKinematicBlock(F, H, Q, R *mat64.Dense, sOff, mOff, k int, n FeatureNoise) {
	for i := 0; i < k; i++ {
		F.Set(sOff+i, sOff+i, 1)
		F.Set(sOff+i, sOff+k+i, n.DT)
		F.Set(sOff+k+i, sOff+k+i, 1)

		H.Set(mOff+i, sOff+i, 1)

		posVar := n.ProcessNoisePosition * n.ProcessNoisePosition
		velVar := n.ProcessNoiseVelocity * n.ProcessNoiseVelocity
		Q.Set(sOff+i, sOff+i, posVar)
		Q.Set(sOff+k+i, sOff+k+i, velVar)

		measVar := n.MeasurementNoise * n.MeasurementNoise
		R.Set(mOff+i, mOff+i, measVar)
	}
}

// buildScalarDynamicBlock lays out one [value, derivative] pair: state
// size 2, measurement size 1.
func buildScalarDynamicBlock(F, H, Q, R *mat64.Dense, sOff, mOff int, n FeatureNoise) {
	F.Set(sOff, sOff, 1)
	F.Set(sOff, sOff+1, n.DT)
	F.Set(sOff+1, sOff+1, 1)

	H.Set(mOff, sOff, 1)

	posVar := n.ProcessNoisePosition * n.ProcessNoisePosition
	velVar := n.ProcessNoiseVelocity * n.ProcessNoiseVelocity
	Q.Set(sOff, sOff, posVar)
	Q.Set(sOff+1, sOff+1, velVar)

	measVar := n.MeasurementNoise * n.MeasurementNoise
	R.Set(mOff, mOff, measVar)
}

// buildStaticBlock lays out a size-n block with identity transition and
// measurement (no derivatives), scaled process noise per
// StaticProcessNoiseScale.
func buildStaticBlock(F, H, Q, R *mat64.Dense, sOff, mOff, size int, n FeatureNoise) {
	for i := 0; i < size; i++ {
		F.Set(sOff+i, sOff+i, 1)
		H.Set(mOff+i, sOff+i, 1)

		posVar := n.ProcessNoisePosition * n.ProcessNoisePosition
		Q.Set(sOff+i, sOff+i, n.StaticProcessNoiseScale*posVar)

		measVar := n.MeasurementNoise * n.MeasurementNoise
		R.Set(mOff+i, mOff+i, measVar)
	}
}
