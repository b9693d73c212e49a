package trackkit

import "sort"

// TimeIndex is a strongly-typed integer index into a time coordinate
// system. Indices from different coordinate systems do not mix without
// an explicit conversion through a CoordinateSystem.
type TimeIndex int64

// Add returns t+delta.
func (t TimeIndex) Add(delta int64) TimeIndex { return TimeIndex(int64(t) + delta) }

// Sub returns the signed frame distance between t and other.
func (t TimeIndex) Sub(other TimeIndex) int64 { return int64(t) - int64(other) }

// Before reports whether t occurs strictly before other.
func (t TimeIndex) Before(other TimeIndex) bool { return t < other }

// After reports whether t occurs strictly after other.
func (t TimeIndex) After(other TimeIndex) bool { return t > other }

// RoundingMode controls how CoordinateSystem resolves a sample-space value
// that falls between two indexed samples.
type RoundingMode int

const (
	// NearestBelow picks the closest index whose sample value is <= the query.
	NearestBelow RoundingMode = iota
	// NearestAbove picks the closest index whose sample value is >= the query.
	NearestAbove
)

// CoordinateSystem maps monotonically increasing sample-space values (e.g.
// seconds, sample numbers) to TimeIndex and back, so containers sampled at
// different rates can be compared.
type CoordinateSystem struct {
	name    string
	samples []float64 // strictly increasing
}

// NewCoordinateSystem builds a coordinate system from a strictly increasing
// slice of sample-space values; samples[i] corresponds to TimeIndex(i).
func NewCoordinateSystem(name string, samples []float64) *CoordinateSystem {
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return &CoordinateSystem{name: name, samples: cp}
}

// Name returns the coordinate system's identifier.
func (c *CoordinateSystem) Name() string { return c.name }

// Len returns the number of indexed samples.
func (c *CoordinateSystem) Len() int { return len(c.samples) }

// ValueAt returns the sample-space value for idx, and whether idx is in range.
func (c *CoordinateSystem) ValueAt(idx TimeIndex) (float64, bool) {
	i := int(idx)
	if i < 0 || i >= len(c.samples) {
		return 0, false
	}
	return c.samples[i], true
}

// IndexOf converts a sample-space value into a TimeIndex using mode to
// resolve ties between two bracketing samples.
func (c *CoordinateSystem) IndexOf(value float64, mode RoundingMode) (TimeIndex, bool) {
	n := len(c.samples)
	if n == 0 {
		return 0, false
	}
	// First sample index i such that samples[i] >= value.
	i := sort.SearchFloat64s(c.samples, value)
	switch mode {
	case NearestAbove:
		if i >= n {
			return 0, false
		}
		return TimeIndex(i), true
	default: // NearestBelow
		if i < n && c.samples[i] == value {
			return TimeIndex(i), true
		}
		if i == 0 {
			return 0, false
		}
		return TimeIndex(i - 1), true
	}
}

// ConvertIndex re-expresses idx (indexed against src) as an index against
// dst, going through the shared sample-space value.
func ConvertIndex(idx TimeIndex, src, dst *CoordinateSystem, mode RoundingMode) (TimeIndex, bool) {
	if src == dst || src == nil || dst == nil {
		return idx, src == dst
	}
	v, ok := src.ValueAt(idx)
	if !ok {
		return 0, false
	}
	return dst.IndexOf(v, mode)
}
