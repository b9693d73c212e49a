package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackkit/trackkit/geom"
)

var sampleLine = geom.Line2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}}

func TestCentroidExtractor(t *testing.T) {
	e := CentroidExtractor{}
	got := e.FilterFeatures(sampleLine)
	want := sampleLine.Centroid()
	assert.Equal(t, []float64{want.X, want.Y}, got)
	assert.Equal(t, "line_centroid", e.FilterFeatureName())

	state := e.InitialState(sampleLine)
	assert.Equal(t, 4, state.Dims())
	assert.Equal(t, 100.0, state.Covariance.At(0, 0))
}

func TestBasePointExtractor(t *testing.T) {
	e := BasePointExtractor{}
	assert.Equal(t, []float64{0, 0}, e.FilterFeatures(sampleLine))
	assert.Equal(t, "line_base_point", e.FilterFeatureName())
}

func TestLengthExtractor(t *testing.T) {
	e := LengthExtractor{}
	got := e.FilterFeatures(sampleLine)
	assert.InDelta(t, 7.0, got[0], 1e-9)
	assert.Equal(t, Static, e.Metadata().TemporalType)
}

func TestExtractorClonesAreIndependent(t *testing.T) {
	e := CentroidExtractor{}
	clone := e.Clone()
	assert.Equal(t, e.FilterFeatures(sampleLine), clone.FilterFeatures(sampleLine))
}
