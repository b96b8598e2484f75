package domain

// Bathtub floods every valid cell whose elevation is at or below level,
// regardless of hydraulic connectivity. Cells exactly at the waterline are
// flooded with zero depth.
func Bathtub(grid *ElevationGrid, level float64) (FloodResult, error) {
	if err := grid.Validate(); err != nil {
		return FloodResult{}, err
	}
	res := newFloodResult(grid.Rows, grid.Cols)
	for i, z := range grid.Values {
		if !grid.IsValid(i) || z > level {
			continue
		}
		res.Mask.Cells[i] = true
		res.Depth[i] = level - z
	}
	return res, nil
}
