package trackkit

import "github.com/gonum/matrix/mat64"

// FilterState is a Kalman filter's belief at one point in time: a mean
// state vector and its covariance. Shared by the feature and kalman
// packages so extractors can produce initial states without importing the
// filter implementation itself (spec.md §4.7/§4.8).
type FilterState struct {
	Mean       []float64
	Covariance *mat64.Dense
}

// Dims returns the state dimensionality.
func (s FilterState) Dims() int { return len(s.Mean) }

// IdentityCovariance returns an n×n diagonal covariance with scale on the
// diagonal, the shape every extractor's getInitialState uses for its
// "high initial uncertainty" prior.
func IdentityCovariance(n int, scale float64) *mat64.Dense {
	m := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, scale)
	}
	return m
}
