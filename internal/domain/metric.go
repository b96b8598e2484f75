package domain

import (
	"math"

	"github.com/ctessum/geom"
)

// DegreeKM is the length of one degree of latitude used by the area
// approximation for geographic grids.
const DegreeKM = 111.32

// Metric measures cells and lines in ground units for one CRS kind.
type Metric interface {
	Kind() Kind
	// CellSizeM is the ground size of one cell along columns and rows.
	CellSizeM(t Transform) (dx, dy float64)
	CellAreaKM2(t Transform) float64
	// LengthKM is the summed ground length of lines given in the metric's CRS.
	LengthKM(lines []geom.LineString) (float64, error)
}

// NewMetric returns the strategy for crs. ref anchors the geographic
// approximations (latitude for cell size, UTM zone for lengths).
func NewMetric(crs CRS, ref geom.Point) (Metric, error) {
	switch crs.Kind() {
	case Geographic:
		return geographicMetric{crs: crs, ref: ref}, nil
	case Projected:
		return projectedMetric{toMeter: crs.ToMeter()}, nil
	default:
		return nil, ErrMissingCRS
	}
}

type geographicMetric struct {
	crs CRS
	ref geom.Point
}

func (geographicMetric) Kind() Kind { return Geographic }

func (m geographicMetric) cosLat() float64 {
	return math.Abs(math.Cos(m.ref.Y * math.Pi / 180))
}

func (m geographicMetric) CellSizeM(t Transform) (dx, dy float64) {
	return math.Abs(t.A) * DegreeKM * 1000 * m.cosLat(), math.Abs(t.E) * DegreeKM * 1000
}

func (m geographicMetric) CellAreaKM2(t Transform) float64 {
	return math.Abs(t.A) * math.Abs(t.E) * DegreeKM * DegreeKM * m.cosLat()
}

// LengthKM reprojects the lines into the UTM zone of the reference point
// before measuring.
func (m geographicMetric) LengthKM(lines []geom.LineString) (float64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	tr, err := m.crs.TransformTo(UTMZoneFor(m.ref.X, m.ref.Y))
	if err != nil {
		return 0, err
	}
	var total float64
	for _, ls := range lines {
		g, err := ls.Transform(tr)
		if err != nil {
			return 0, err
		}
		total += g.(geom.LineString).Length()
	}
	return total / 1000, nil
}

type projectedMetric struct {
	toMeter float64
}

func (projectedMetric) Kind() Kind { return Projected }

func (m projectedMetric) CellSizeM(t Transform) (dx, dy float64) {
	return math.Abs(t.A) * m.toMeter, math.Abs(t.E) * m.toMeter
}

func (m projectedMetric) CellAreaKM2(t Transform) float64 {
	return math.Abs(t.A) * math.Abs(t.E) * m.toMeter * m.toMeter / 1e6
}

func (m projectedMetric) LengthKM(lines []geom.LineString) (float64, error) {
	var total float64
	for _, ls := range lines {
		total += ls.Length()
	}
	return total * m.toMeter / 1000, nil
}
