// Package geom holds the minimal geometric payload types feature
// extractors operate on, standing in for WhiskerToolbox's CoreGeometry
// line/point types.
package geom

import "math"

// Point2D is a single 2D sample.
type Point2D struct {
	X, Y float64
}

// Line2D is an ordered sequence of 2D points, the raw per-frame
// observation a tracked entity is built from.
type Line2D []Point2D

// Centroid returns the mean of all points, or the zero point if empty.
func (l Line2D) Centroid() Point2D {
	if len(l) == 0 {
		return Point2D{}
	}
	var sx, sy float64
	for _, p := range l {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(l))
	return Point2D{X: sx / n, Y: sy / n}
}

// BasePoint returns the first point, or the zero point if empty.
func (l Line2D) BasePoint() Point2D {
	if len(l) == 0 {
		return Point2D{}
	}
	return l[0]
}

// Length returns the total arc length: the sum of consecutive-point
// Euclidean distances.
func (l Line2D) Length() float64 {
	if len(l) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(l); i++ {
		dx := l[i].X - l[i-1].X
		dy := l[i].Y - l[i-1].Y
		total += math.Hypot(dx, dy)
	}
	return total
}
