// Package feature describes the measurement-to-state mapping contract
// consumed by the Kalman matrix builder and the extractors that turn raw
// geometric data into measurement vectors (spec.md §4.6).
package feature

import "github.com/trackkit/trackkit"

// TemporalType classifies how a feature evolves over time and determines
// how its state space is constructed for Kalman filtering.
type TemporalType int

const (
	// Static features are time-invariant or slowly varying: measurement
	// [x] maps straight to state [x], no velocity tracking.
	Static TemporalType = iota
	// Kinematic2D tracks a 2D position with velocity: [x, y] -> [x, y, vx, vy].
	Kinematic2D
	// Kinematic3D tracks a 3D position with velocity: [x, y, z] -> [x, y, z, vx, vy, vz].
	Kinematic3D
	// ScalarDynamic gives every scalar component its own first derivative.
	ScalarDynamic
	// Custom state mappings are supplied by the caller via NewCustomMetadata.
	Custom
)

func (t TemporalType) String() string {
	switch t {
	case Static:
		return "static"
	case Kinematic2D:
		return "kinematic_2d"
	case Kinematic3D:
		return "kinematic_3d"
	case ScalarDynamic:
		return "scalar_dynamic"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Metadata describes one feature's measurement/state dimensionality and
// temporal behavior, the information the Kalman matrix builder needs to lay
// out its block-diagonal F/H/Q/R matrices.
type Metadata struct {
	Name             string
	MeasurementSize  int
	StateSize        int
	TemporalType     TemporalType
}

// CalculateStateSize derives a state size from measurement size and
// temporal type. Kinematic sizes are fixed regardless of measurement size
// because position+velocity always pairs one velocity component per axis.
func CalculateStateSize(measurementSize int, t TemporalType) int {
	switch t {
	case Static:
		return measurementSize
	case Kinematic2D:
		return 4
	case Kinematic3D:
		return 6
	case ScalarDynamic:
		return 2 * measurementSize
	case Custom:
		return measurementSize
	default:
		return measurementSize
	}
}

// NewMetadata builds Metadata with an automatically calculated state size.
func NewMetadata(name string, measurementSize int, t TemporalType) Metadata {
	return Metadata{
		Name:            name,
		MeasurementSize: measurementSize,
		StateSize:       CalculateStateSize(measurementSize, t),
		TemporalType:    t,
	}
}

// NewCustomMetadata builds Metadata for TemporalType Custom with a caller
// supplied state size, since CalculateStateSize can't infer one.
func NewCustomMetadata(name string, measurementSize, stateSize int) Metadata {
	return Metadata{
		Name:            name,
		MeasurementSize: measurementSize,
		StateSize:       stateSize,
		TemporalType:    Custom,
	}
}

// HasDerivatives reports whether the state carries derivative terms beyond
// the raw measurement.
func (m Metadata) HasDerivatives() bool { return m.StateSize > m.MeasurementSize }

// DerivativeOrder reports how many derivative layers the state carries: 0
// for Static, 1 for the kinematic/scalar-dynamic types, and the computed
// ratio for Custom.
func (m Metadata) DerivativeOrder() int {
	switch m.TemporalType {
	case Static:
		return 0
	case Kinematic2D, Kinematic3D, ScalarDynamic:
		return 1
	case Custom:
		if m.MeasurementSize == 0 {
			return 0
		}
		return (m.StateSize - m.MeasurementSize) / m.MeasurementSize
	default:
		return 0
	}
}

// StateIndexMap records where each named feature's state block begins
// within a composite state vector, so the matrix builder and extractors
// agree on layout without recomputing offsets.
type StateIndexMap struct {
	offsets map[string]int
	order   []string
	total   int
}

// NewStateIndexMap lays out metas in order, each occupying StateSize
// contiguous slots starting where the previous feature's block ended.
func NewStateIndexMap(metas []Metadata) StateIndexMap {
	m := StateIndexMap{offsets: make(map[string]int, len(metas))}
	offset := 0
	for _, meta := range metas {
		m.offsets[meta.Name] = offset
		m.order = append(m.order, meta.Name)
		offset += meta.StateSize
	}
	m.total = offset
	return m
}

// Offset returns the starting index of name's state block.
func (m StateIndexMap) Offset(name string) (int, bool) {
	o, ok := m.offsets[name]
	return o, ok
}

// Order returns feature names in layout order.
func (m StateIndexMap) Order() []string { return m.order }

// TotalSize returns the composite state vector's total dimensionality.
func (m StateIndexMap) TotalSize() int { return m.total }

// VectorInitializer builds the func([]float64) trackkit.FilterState a
// tracker needs to seed a new track from a bare measurement vector (no
// typed source data available, e.g. a track started from an assignment).
// It pads the measurement with zero derivatives up to meta.StateSize and
// seeds an identity covariance scaled by posVariance for the measurement
// block and velVariance for any derivative block.
func VectorInitializer(meta Metadata, posVariance, velVariance float64) func([]float64) trackkit.FilterState {
	return func(vec []float64) trackkit.FilterState {
		mean := make([]float64, meta.StateSize)
		copy(mean, vec)
		cov := trackkit.IdentityCovariance(meta.StateSize, posVariance)
		for i := meta.MeasurementSize; i < meta.StateSize; i++ {
			cov.Set(i, i, velVariance)
		}
		return trackkit.FilterState{Mean: mean, Covariance: cov}
	}
}
