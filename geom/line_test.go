package geom

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/stretchr/testify/assert"
)

func TestLine2DCentroid(t *testing.T) {
	line := Line2D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	c := line.Centroid()
	assert.True(t, floats.EqualWithinAbs(c.X, 1.0, 1e-9))
	assert.True(t, floats.EqualWithinAbs(c.Y, 1.0, 1e-9))
}

func TestLine2DBasePoint(t *testing.T) {
	line := Line2D{{X: 5, Y: 7}, {X: 9, Y: 9}}
	p := line.BasePoint()
	assert.Equal(t, 5.0, p.X)
	assert.Equal(t, 7.0, p.Y)
}

func TestLine2DLength(t *testing.T) {
	line := Line2D{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 0}}
	got := line.Length()
	want := math.Hypot(3, 4) + math.Hypot(0, 4)
	assert.True(t, floats.EqualWithinAbs(got, want, 1e-9))
}

func TestLine2DEmptyAndSinglePoint(t *testing.T) {
	var empty Line2D
	assert.Equal(t, Point2D{}, empty.Centroid())
	assert.Equal(t, 0.0, empty.Length())

	single := Line2D{{X: 1, Y: 2}}
	assert.Equal(t, Point2D{X: 1, Y: 2}, single.Centroid())
	assert.Equal(t, 0.0, single.Length())
}
