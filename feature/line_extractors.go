package feature

import (
	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/geom"
)

// CentroidExtractor extracts a Line2D's centroid as a kinematic 2D
// feature (spec.md §4.6, grounded on LineCentroidExtractor.hpp).
type CentroidExtractor struct{}

func (CentroidExtractor) FilterFeatures(line geom.Line2D) []float64 {
	c := line.Centroid()
	return []float64{c.X, c.Y}
}

func (e CentroidExtractor) AllFeatures(line geom.Line2D) Cache {
	return Cache{e.FilterFeatureName(): e.FilterFeatures(line)}
}

func (CentroidExtractor) FilterFeatureName() string { return "line_centroid" }

func (e CentroidExtractor) InitialState(line geom.Line2D) trackkit.FilterState {
	c := line.Centroid()
	return trackkit.FilterState{
		Mean:       []float64{c.X, c.Y, 0, 0},
		Covariance: trackkit.IdentityCovariance(4, 100.0),
	}
}

func (e CentroidExtractor) Clone() Extractor[geom.Line2D] { return CentroidExtractor{} }

func (CentroidExtractor) Metadata() Metadata { return NewMetadata("line_centroid", 2, Kinematic2D) }

// BasePointExtractor extracts a Line2D's first point as a kinematic 2D
// feature (grounded on LineBasePointExtractor.hpp).
type BasePointExtractor struct{}

func (BasePointExtractor) FilterFeatures(line geom.Line2D) []float64 {
	p := line.BasePoint()
	return []float64{p.X, p.Y}
}

func (e BasePointExtractor) AllFeatures(line geom.Line2D) Cache {
	return Cache{e.FilterFeatureName(): e.FilterFeatures(line)}
}

func (BasePointExtractor) FilterFeatureName() string { return "line_base_point" }

func (e BasePointExtractor) InitialState(line geom.Line2D) trackkit.FilterState {
	p := line.BasePoint()
	return trackkit.FilterState{
		Mean:       []float64{p.X, p.Y, 0, 0},
		Covariance: trackkit.IdentityCovariance(4, 100.0),
	}
}

func (e BasePointExtractor) Clone() Extractor[geom.Line2D] { return BasePointExtractor{} }

func (BasePointExtractor) Metadata() Metadata {
	return NewMetadata("line_base_point", 2, Kinematic2D)
}

// LengthExtractor extracts a Line2D's arc length as a static scalar
// feature (grounded on LineLengthExtractor.hpp).
type LengthExtractor struct{}

func (LengthExtractor) FilterFeatures(line geom.Line2D) []float64 {
	return []float64{line.Length()}
}

func (e LengthExtractor) AllFeatures(line geom.Line2D) Cache {
	return Cache{e.FilterFeatureName(): e.FilterFeatures(line)}
}

func (LengthExtractor) FilterFeatureName() string { return "line_length" }

func (e LengthExtractor) InitialState(line geom.Line2D) trackkit.FilterState {
	return trackkit.FilterState{
		Mean:       []float64{line.Length()},
		Covariance: trackkit.IdentityCovariance(1, 25.0),
	}
}

func (e LengthExtractor) Clone() Extractor[geom.Line2D] { return LengthExtractor{} }

func (LengthExtractor) Metadata() Metadata { return NewMetadata("line_length", 1, Static) }
