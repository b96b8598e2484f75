package domain

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// UnknownCategory buckets roads without a category value.
const UnknownCategory = "unknown"

type RoadFeature struct {
	Geometry geom.LineString
	Category string
}

// RoadLayer is a read-only set of road centrelines.
type RoadLayer struct {
	Name     string
	CRS      CRS
	Features []RoadFeature
}

// Facility is a point asset such as a hospital or school.
type Facility struct {
	Location geom.Point
	Name     string
	Type     string
}

// PointLayer is a labelled, read-only set of facilities.
type PointLayer struct {
	Label    string
	CRS      CRS
	Features []Facility
}

// Reproject returns the layer in dst, or the layer itself when it is already
// there.
func (l RoadLayer) Reproject(dst CRS) (RoadLayer, error) {
	tr, err := layerTransform(l.Name, l.CRS, dst)
	if err != nil || tr == nil {
		return l, err
	}
	out := RoadLayer{Name: l.Name, CRS: dst, Features: make([]RoadFeature, len(l.Features))}
	for i, f := range l.Features {
		g, err := f.Geometry.Transform(tr)
		if err != nil {
			return RoadLayer{}, fmt.Errorf("%w: layer %s feature %d: %v", ErrCRSMismatch, l.Name, i, err)
		}
		out.Features[i] = RoadFeature{Geometry: g.(geom.LineString), Category: f.Category}
	}
	return out, nil
}

func (l PointLayer) Reproject(dst CRS) (PointLayer, error) {
	tr, err := layerTransform(l.Label, l.CRS, dst)
	if err != nil || tr == nil {
		return l, err
	}
	out := PointLayer{Label: l.Label, CRS: dst, Features: make([]Facility, len(l.Features))}
	for i, f := range l.Features {
		x, y, err := tr(f.Location.X, f.Location.Y)
		if err != nil {
			return PointLayer{}, fmt.Errorf("%w: layer %s feature %d: %v", ErrCRSMismatch, l.Label, i, err)
		}
		out.Features[i] = Facility{Location: geom.Point{X: x, Y: y}, Name: f.Name, Type: f.Type}
	}
	return out, nil
}

// layerTransform returns a nil transformer when no reprojection is needed.
func layerTransform(name string, src, dst CRS) (proj.Transformer, error) {
	if src.IsZero() {
		return nil, fmt.Errorf("layer %s: %w", name, ErrMissingCRS)
	}
	if src.Equal(dst) {
		return nil, nil
	}
	tr, err := src.TransformTo(dst)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	return tr, nil
}
