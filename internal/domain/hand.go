package domain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HANDConfig tunes the height-above-nearest-drainage approximation. Both
// values are heuristics, not calibrated hydraulic parameters.
type HANDConfig struct {
	// Percentile of valid elevations taken as the drainage (river) base, in (0, 100).
	Percentile float64
	// MaxDrainageDistanceM drops cells farther than this from any drainage
	// cell. Zero disables the damping.
	MaxDrainageDistanceM float64
}

func DefaultHANDConfig() HANDConfig {
	return HANDConfig{Percentile: 10, MaxDrainageDistanceM: 2000}
}

func (c HANDConfig) Validate() error {
	if !(c.Percentile > 0 && c.Percentile < 100) {
		return fmt.Errorf("%w: hand percentile %g outside (0, 100)", ErrInvalidScenario, c.Percentile)
	}
	if c.MaxDrainageDistanceM < 0 || math.IsNaN(c.MaxDrainageDistanceM) {
		return fmt.Errorf("%w: max drainage distance %g", ErrInvalidScenario, c.MaxDrainageDistanceM)
	}
	return nil
}

// RiverBaseElevation estimates the drainage base as the p-th percentile
// (linear interpolation) of the valid elevations.
func RiverBaseElevation(grid *ElevationGrid, percentile float64) (float64, error) {
	if !(percentile > 0 && percentile < 100) {
		return 0, fmt.Errorf("%w: percentile %g outside (0, 100)", ErrInvalidScenario, percentile)
	}
	vals := grid.ValidValues()
	if len(vals) == 0 {
		return 0, ErrEmptyGrid
	}
	sort.Float64s(vals)
	base := stat.Quantile(percentile/100, stat.LinInterp, vals, nil)
	if math.IsNaN(base) || math.IsInf(base, 0) {
		return 0, ErrInsufficientData
	}
	return base, nil
}

// HeightAboveBase is elevation minus base per cell; nodata cells are NaN.
func HeightAboveBase(grid *ElevationGrid, base float64) []float64 {
	out := make([]float64, grid.Len())
	for i, z := range grid.Values {
		if !grid.IsValid(i) {
			out[i] = math.NaN()
			continue
		}
		out[i] = z - base
	}
	return out
}

// DrainageDistance returns the ground distance in metres from every cell to
// the nearest drainage cell (valid and at or below base).
func DrainageDistance(grid *ElevationGrid, base float64, metric Metric) ([]float64, error) {
	drain := make([]bool, grid.Len())
	found := false
	for i, z := range grid.Values {
		if grid.IsValid(i) && z <= base {
			drain[i] = true
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no drainage cells at or below %g", ErrInsufficientData, base)
	}
	dx, dy := metric.CellSizeM(grid.Transform)
	return DistanceTransform(drain, grid.Rows, grid.Cols, dx, dy), nil
}

// HAND floods cells whose height above the estimated drainage base is at or
// below level, optionally restricted to cells near drainage. It is a static
// geometric proxy and never a validated hydraulic model.
func HAND(grid *ElevationGrid, level float64, cfg HANDConfig) (FloodResult, error) {
	if err := grid.Validate(); err != nil {
		return FloodResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return FloodResult{}, err
	}
	base, err := RiverBaseElevation(grid, cfg.Percentile)
	if err != nil {
		return FloodResult{}, err
	}
	return handFromBase(grid, level, base, cfg.MaxDrainageDistanceM)
}

func handFromBase(grid *ElevationGrid, level, base, maxDistanceM float64) (FloodResult, error) {
	var dist []float64
	if maxDistanceM > 0 {
		metric, err := grid.Metric()
		if err != nil {
			return FloodResult{}, err
		}
		dist, err = DrainageDistance(grid, base, metric)
		if err != nil {
			return FloodResult{}, err
		}
	}

	hand := HeightAboveBase(grid, base)
	res := newFloodResult(grid.Rows, grid.Cols)
	for i, h := range hand {
		if math.IsNaN(h) || h > level {
			continue
		}
		if dist != nil && dist[i] > maxDistanceM {
			continue
		}
		res.Mask.Cells[i] = true
		res.Depth[i] = math.Max(level-h, 0)
	}
	return res, nil
}
