// Package domain estimates flood extent from a digital elevation model (DEM)
// and measures the infrastructure a flood reaches.
//
// # Flood models
//
// Bathtub:
//
//	Every valid cell at or below the water surface is flooded, whether or not
//	water could actually reach it. depth = level - elevation.
//
// HAND (height above nearest drainage):
//
//	The drainage base is a low percentile of the valid elevations. A cell is
//	flooded when elevation - base <= level and, unless disabled, it lies within
//	a maximum ground distance of a drainage cell (a cell at or below the base).
//	Distances come from an exact Euclidean distance transform. This is a
//	static terrain proxy; it is not a hydraulic model and its thresholds are
//	tunable heuristics.
//
// Scenario levels are given above an estimated river base (5th percentile of
// elevations by default) or as an absolute water surface.
//
// # Units and reference systems
//
// Elevations and depths are metres. A [CRS] is either geographic (degrees) or
// projected (linear units with a metre factor). Each kind has a [Metric]:
//
//	Geographic cell area: |dx| * |dy| * 111.32^2 * cos(lat) km^2, lat at the grid centre
//	Projected cell area:  |dx| * |dy| * toMeter^2 / 1e6 km^2
//	Geographic lengths:   measured after reprojection to the local UTM zone
//
// # Geometry
//
// Flood masks are vectorized by tracing 8-connected regions along cell edges.
// Outer rings are counter-clockwise and holes clockwise in world coordinates.
// Points on a polygon boundary count as not flooded; a road running along a
// boundary contributes no flooded length.
//
// Raster convention: the affine [Transform] maps pixel corners, row 0 at the
// top for north-up grids.
package domain
