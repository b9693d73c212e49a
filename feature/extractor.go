package feature

import "github.com/trackkit/trackkit"

// Cache holds every feature a data point's extractors can produce, keyed
// by filter-feature name, for assignment-time lookup without recomputing.
type Cache map[string][]float64

// Extractor converts a raw data point of type D into the measurement
// vector the filter and assigner consume. Implementations are expected to
// be cheap value types so Clone can return an independent copy.
type Extractor[D any] interface {
	FilterFeatures(data D) []float64
	AllFeatures(data D) Cache
	FilterFeatureName() string
	InitialState(data D) trackkit.FilterState
	Clone() Extractor[D]
	Metadata() Metadata
}
