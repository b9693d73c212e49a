package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateStateSize(t *testing.T) {
	cases := []struct {
		name string
		meas int
		typ  TemporalType
		want int
	}{
		{"static", 3, Static, 3},
		{"kinematic2d", 2, Kinematic2D, 4},
		{"kinematic3d", 3, Kinematic3D, 6},
		{"scalar_dynamic", 2, ScalarDynamic, 4},
		{"custom", 5, Custom, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CalculateStateSize(c.meas, c.typ))
		})
	}
}

func TestNewMetadataDerivatives(t *testing.T) {
	m := NewMetadata("centroid", 2, Kinematic2D)
	assert.True(t, m.HasDerivatives())
	assert.Equal(t, 1, m.DerivativeOrder())

	s := NewMetadata("length", 1, Static)
	assert.False(t, s.HasDerivatives())
	assert.Equal(t, 0, s.DerivativeOrder())
}

func TestNewCustomMetadata(t *testing.T) {
	m := NewCustomMetadata("custom_blob", 3, 9)
	assert.Equal(t, Custom, m.TemporalType)
	assert.Equal(t, 9, m.StateSize)
	assert.Equal(t, 2, m.DerivativeOrder())
}

func TestStateIndexMapLayout(t *testing.T) {
	metas := []Metadata{
		NewMetadata("centroid", 2, Kinematic2D),
		NewMetadata("length", 1, Static),
	}
	m := NewStateIndexMap(metas)

	centroidOff, ok := m.Offset("centroid")
	assert.True(t, ok)
	assert.Equal(t, 0, centroidOff)

	lengthOff, ok := m.Offset("length")
	assert.True(t, ok)
	assert.Equal(t, 4, lengthOff)

	assert.Equal(t, 5, m.TotalSize())
	assert.Equal(t, []string{"centroid", "length"}, m.Order())

	_, ok = m.Offset("missing")
	assert.False(t, ok)
}

func TestVectorInitializer(t *testing.T) {
	meta := NewMetadata("centroid", 2, Kinematic2D)
	init := VectorInitializer(meta, 10.0, 50.0)

	state := init([]float64{1.5, 2.5})
	assert.Equal(t, []float64{1.5, 2.5, 0, 0}, state.Mean)
	assert.Equal(t, 10.0, state.Covariance.At(0, 0))
	assert.Equal(t, 10.0, state.Covariance.At(1, 1))
	assert.Equal(t, 50.0, state.Covariance.At(2, 2))
	assert.Equal(t, 50.0, state.Covariance.At(3, 3))
	assert.Equal(t, 0.0, state.Covariance.At(0, 1))
}
