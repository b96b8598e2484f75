package domain

import (
	"fmt"

	"github.com/ctessum/geom"
)

// PointEvaluator decides whether a point in the grid CRS is flooded.
type PointEvaluator interface {
	Name() string
	Exposed(p geom.Point) bool
}

// PolygonEvaluator tests points against vectorized flood polygons.
type PolygonEvaluator struct {
	index *polygonIndex
}

func NewPolygonEvaluator(set PolygonSet) *PolygonEvaluator {
	return &PolygonEvaluator{index: newPolygonIndex(set.Polygons)}
}

func (*PolygonEvaluator) Name() string { return "polygon" }

func (e *PolygonEvaluator) Exposed(p geom.Point) bool { return e.index.contains(p) }

// RasterEvaluator samples the flood mask at the pixel holding the point.
// Points outside the raster are never exposed.
type RasterEvaluator struct {
	mask Mask
	t    Transform
}

func NewRasterEvaluator(mask Mask, t Transform) (*RasterEvaluator, error) {
	if len(mask.Cells) != mask.Rows*mask.Cols {
		return nil, fmt.Errorf("%w: mask %dx%d with %d cells", ErrShapeMismatch, mask.Rows, mask.Cols, len(mask.Cells))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &RasterEvaluator{mask: mask, t: t}, nil
}

func (*RasterEvaluator) Name() string { return "raster" }

func (e *RasterEvaluator) Exposed(p geom.Point) bool {
	r, c, ok := PixelAt(e.t, e.mask.Rows, e.mask.Cols, p.X, p.Y)
	return ok && e.mask.At(r, c)
}

// SelectPointEvaluator prefers polygons when they were built and falls back
// to sampling the mask otherwise.
func SelectPointEvaluator(polys *PolygonSet, mask Mask, t Transform) (PointEvaluator, error) {
	if polys != nil {
		return NewPolygonEvaluator(*polys), nil
	}
	return NewRasterEvaluator(mask, t)
}
