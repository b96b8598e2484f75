package domain

import (
	"fmt"

	"github.com/ctessum/geom"
)

// CellAreaKM2 returns the area of one cell in square kilometres. lat is only
// consulted for geographic references.
func CellAreaKM2(t Transform, crs CRS, lat float64) (float64, error) {
	if crs.IsZero() {
		return 0, ErrMissingCRS
	}
	m, err := NewMetric(crs, geom.Point{Y: lat})
	if err != nil {
		return 0, err
	}
	return m.CellAreaKM2(t), nil
}

// FloodedAreaKM2 multiplies the flooded cell count by the grid's cell area.
func FloodedAreaKM2(mask Mask, grid *ElevationGrid) (float64, error) {
	if mask.Rows != grid.Rows || mask.Cols != grid.Cols {
		return 0, fmt.Errorf("%w: mask %dx%d, grid %dx%d", ErrShapeMismatch, mask.Rows, mask.Cols, grid.Rows, grid.Cols)
	}
	cell, err := CellAreaKM2(grid.Transform, grid.CRS, grid.Center().Y)
	if err != nil {
		return 0, err
	}
	return float64(mask.Count()) * cell, nil
}
