package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Transform is the affine map from (col, row) pixel-corner coordinates to
// world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// NewNorthUpTransform builds the usual north-up transform from the world
// coordinate of the top-left corner and the cell size.
func NewNorthUpTransform(originX, originY, cellWidth, cellHeight float64) Transform {
	return Transform{A: cellWidth, C: originX, E: -math.Abs(cellHeight), F: originY}
}

// Apply maps fractional pixel coordinates to world coordinates.
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// Invert maps world coordinates back to fractional pixel coordinates.
func (t Transform) Invert(x, y float64) (col, row float64) {
	det := t.Determinant()
	dx, dy := x-t.C, y-t.F
	col = (t.E*dx - t.B*dy) / det
	row = (-t.D*dx + t.A*dy) / det
	return col, row
}

func (t Transform) Determinant() float64 { return t.A*t.E - t.B*t.D }

// Params returns the six coefficients in A..F order.
func (t Transform) Params() [6]float64 {
	return [6]float64{t.A, t.B, t.C, t.D, t.E, t.F}
}

// Validate rejects transforms that cannot be inverted or that carry a zero
// cell size.
func (t Transform) Validate() error {
	for _, v := range t.Params() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coefficient", ErrInvalidTransform)
		}
	}
	if t.A == 0 || t.E == 0 {
		return fmt.Errorf("%w: zero cell size", ErrInvalidTransform)
	}
	if t.Determinant() == 0 {
		return fmt.Errorf("%w: singular", ErrInvalidTransform)
	}
	return nil
}

// ElevationGrid is a row-major raster of elevations in metres. It is treated
// as immutable once constructed.
type ElevationGrid struct {
	Rows, Cols int
	Values     []float64
	Transform  Transform
	CRS        CRS
	// NoData marks cells without a measurement. NaN is always nodata.
	NoData *float64
}

// NewElevationGrid validates and assembles a grid.
func NewElevationGrid(rows, cols int, values []float64, t Transform, crs CRS, noData *float64) (*ElevationGrid, error) {
	g := &ElevationGrid{Rows: rows, Cols: cols, Values: values, Transform: t, CRS: crs, NoData: noData}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *ElevationGrid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: grid is %dx%d", ErrShapeMismatch, g.Rows, g.Cols)
	}
	if len(g.Values) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %d values for %dx%d grid", ErrShapeMismatch, len(g.Values), g.Rows, g.Cols)
	}
	if g.CRS.IsZero() {
		return ErrMissingCRS
	}
	return g.Transform.Validate()
}

func (g *ElevationGrid) Len() int { return g.Rows * g.Cols }

func (g *ElevationGrid) At(row, col int) float64 { return g.Values[row*g.Cols+col] }

// IsValid reports whether cell i holds a measurement.
func (g *ElevationGrid) IsValid(i int) bool {
	v := g.Values[i]
	if math.IsNaN(v) {
		return false
	}
	return g.NoData == nil || v != *g.NoData
}

// ValidValues returns a copy of every measured elevation.
func (g *ElevationGrid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.Values))
	for i, v := range g.Values {
		if g.IsValid(i) {
			out = append(out, v)
		}
	}
	return out
}

// Center is the world coordinate of the grid midpoint.
func (g *ElevationGrid) Center() geom.Point {
	x, y := g.Transform.Apply(float64(g.Cols)/2, float64(g.Rows)/2)
	return geom.Point{X: x, Y: y}
}

// Bounds is the world extent of the grid.
func (g *ElevationGrid) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, c := range [][2]float64{{0, 0}, {float64(g.Cols), 0}, {0, float64(g.Rows)}, {float64(g.Cols), float64(g.Rows)}} {
		x, y := g.Transform.Apply(c[0], c[1])
		b.Extend(geom.Point{X: x, Y: y}.Bounds())
	}
	return b
}

// Metric returns the measurement strategy for the grid CRS, anchored at the
// grid centre.
func (g *ElevationGrid) Metric() (Metric, error) {
	return NewMetric(g.CRS, g.Center())
}

// PixelAt returns the cell containing world coordinate (x, y).
func PixelAt(t Transform, rows, cols int, x, y float64) (row, col int, ok bool) {
	fc, fr := t.Invert(x, y)
	if math.IsNaN(fc) || math.IsNaN(fr) {
		return 0, 0, false
	}
	c, r := int(math.Floor(fc)), int(math.Floor(fr))
	if r < 0 || r >= rows || c < 0 || c >= cols {
		return 0, 0, false
	}
	return r, c, true
}
