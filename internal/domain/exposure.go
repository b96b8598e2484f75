package domain

import (
	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
)

// RoadExposure is the flooded road length per category and in total.
type RoadExposure struct {
	ByCategoryKM map[string]float64 `json:"by_category_km"`
	TotalKM      float64            `json:"total_km"`
}

// FloodedRoadLength clips every road in layer (already in the polygons' CRS)
// against the flood polygons and measures the flooded pieces with metric.
func FloodedRoadLength(layer RoadLayer, polys PolygonSet, metric Metric) (RoadExposure, error) {
	out := RoadExposure{ByCategoryKM: map[string]float64{}}
	if len(layer.Features) == 0 || polys.IsEmpty() {
		return out, nil
	}
	ix := newPolygonIndex(polys.Polygons)
	bounds := polys.Bounds()

	byCategory := map[string][]geom.LineString{}
	var order []string
	for _, f := range layer.Features {
		if len(f.Geometry) < 2 || !f.Geometry.Bounds().Overlaps(bounds) {
			continue
		}
		pieces := clipLine(f.Geometry, ix)
		if len(pieces) == 0 {
			continue
		}
		cat := f.Category
		if cat == "" {
			cat = UnknownCategory
		}
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], pieces...)
	}

	lengths := make([]float64, 0, len(order))
	for _, cat := range order {
		km, err := metric.LengthKM(byCategory[cat])
		if err != nil {
			return RoadExposure{}, err
		}
		out.ByCategoryKM[cat] = km
		lengths = append(lengths, km)
	}
	out.TotalKM = floats.Sum(lengths)
	return out, nil
}

// CountExposed counts the facilities of layer (already in the grid CRS) that
// ev reports as flooded.
func CountExposed(layer PointLayer, ev PointEvaluator) int {
	n := 0
	for _, f := range layer.Features {
		if ev.Exposed(f.Location) {
			n++
		}
	}
	return n
}
