package feature

import "github.com/trackkit/trackkit"

// Composite chains several extractors together, concatenating their
// filter-feature vectors and initial states in insertion order (spec.md
// §4.6, grounded on CompositeFeatureExtractor.hpp).
type Composite[D any] struct {
	extractors []Extractor[D]
}

// NewComposite builds a composite from the given extractors, applied in
// order.
func NewComposite[D any](extractors ...Extractor[D]) *Composite[D] {
	return &Composite[D]{extractors: append([]Extractor[D]{}, extractors...)}
}

// Add appends an extractor to the chain.
func (c *Composite[D]) Add(e Extractor[D]) { c.extractors = append(c.extractors, e) }

// Count returns the number of child extractors.
func (c *Composite[D]) Count() int { return len(c.extractors) }

func (c *Composite[D]) FilterFeatures(data D) []float64 {
	var out []float64
	for _, e := range c.extractors {
		out = append(out, e.FilterFeatures(data)...)
	}
	return out
}

func (c *Composite[D]) FilterFeatureName() string { return "composite_features" }

func (c *Composite[D]) AllFeatures(data D) Cache {
	cache := Cache{c.FilterFeatureName(): c.FilterFeatures(data)}
	for _, e := range c.extractors {
		for k, v := range e.AllFeatures(data) {
			cache[k] = v
		}
	}
	return cache
}

// InitialState concatenates each child's initial mean and assembles a
// block-diagonal covariance from their individual covariances.
func (c *Composite[D]) InitialState(data D) trackkit.FilterState {
	if len(c.extractors) == 0 {
		return trackkit.FilterState{Mean: nil, Covariance: trackkit.IdentityCovariance(0, 0)}
	}

	states := make([]trackkit.FilterState, len(c.extractors))
	total := 0
	for i, e := range c.extractors {
		states[i] = e.InitialState(data)
		total += states[i].Dims()
	}

	mean := make([]float64, 0, total)
	cov := trackkit.IdentityCovariance(total, 0)
	offset := 0
	for _, st := range states {
		mean = append(mean, st.Mean...)
		n := st.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cov.Set(offset+i, offset+j, st.Covariance.At(i, j))
			}
		}
		offset += n
	}
	return trackkit.FilterState{Mean: mean, Covariance: cov}
}

func (c *Composite[D]) Clone() Extractor[D] {
	clones := make([]Extractor[D], len(c.extractors))
	for i, e := range c.extractors {
		clones[i] = e.Clone()
	}
	return NewComposite(clones...)
}

// Metadata aggregates child metadata: total measurement/state size, type
// Custom since the result is a composition of heterogeneous features.
func (c *Composite[D]) Metadata() Metadata {
	var measurement, state int
	for _, e := range c.extractors {
		m := e.Metadata()
		measurement += m.MeasurementSize
		state += m.StateSize
	}
	return NewCustomMetadata("composite_features", measurement, state)
}

// ChildMetadata returns each child extractor's metadata in layout order,
// the input the Kalman matrix builder needs to lay out block-diagonal
// F/H/Q/R matrices.
func (c *Composite[D]) ChildMetadata() []Metadata {
	out := make([]Metadata, len(c.extractors))
	for i, e := range c.extractors {
		out[i] = e.Metadata()
	}
	return out
}
