package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Layers is the infrastructure evaluated against each flood.
type Layers struct {
	Roads  *RoadLayer
	Points []PointLayer
}

type AnalyzerConfig struct {
	// MaxPolygonCells skips vectorization for floods with more cells than
	// this. Zero means no limit.
	MaxPolygonCells int
}

// ExposureReport summarizes one scenario.
type ExposureReport struct {
	ScenarioID     string         `json:"scenario_id"`
	Method         Method         `json:"method"`
	RiverBaseM     float64        `json:"river_base_m"`
	TargetLevelM   float64        `json:"target_level_m"`
	FloodedCells   int            `json:"flooded_cells"`
	FloodedAreaKM2 float64        `json:"flooded_area_km2"`
	MaxDepthM      float64        `json:"max_depth_m"`
	PolygonCount   int            `json:"polygon_count"`
	Roads          *RoadExposure  `json:"roads,omitempty"`
	Facilities     map[string]int `json:"facilities"`
	PointEvaluator string         `json:"point_evaluator"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Analyzer runs scenarios against one DEM and one set of layers. Layers are
// reprojected into the grid CRS once, at construction.
type Analyzer struct {
	grid    *ElevationGrid
	layers  Layers
	metric  Metric
	builder PolygonBuilder
	cfg     AnalyzerConfig
	logger  *slog.Logger
}

// NewAnalyzer validates the grid and reprojects the layers. A nil builder
// disables vectorization, so roads are skipped and points are sampled from
// the mask.
func NewAnalyzer(grid *ElevationGrid, layers Layers, builder PolygonBuilder, cfg AnalyzerConfig, logger *slog.Logger) (*Analyzer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	metric, err := grid.Metric()
	if err != nil {
		return nil, err
	}

	var prepared Layers
	if layers.Roads != nil && len(layers.Roads.Features) > 0 {
		roads, err := layers.Roads.Reproject(grid.CRS)
		if err != nil {
			return nil, err
		}
		prepared.Roads = &roads
	} else if layers.Roads != nil {
		prepared.Roads = &RoadLayer{Name: layers.Roads.Name, CRS: grid.CRS}
	}
	for _, pl := range layers.Points {
		if len(pl.Features) == 0 {
			prepared.Points = append(prepared.Points, PointLayer{Label: pl.Label, CRS: grid.CRS})
			continue
		}
		rp, err := pl.Reproject(grid.CRS)
		if err != nil {
			return nil, err
		}
		prepared.Points = append(prepared.Points, rp)
	}

	return &Analyzer{
		grid:    grid,
		layers:  prepared,
		metric:  metric,
		builder: builder,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

func (a *Analyzer) Grid() *ElevationGrid { return a.grid }

// Analyze runs the scenario's flood model and evaluates exposure.
func (a *Analyzer) Analyze(ctx context.Context, sc Scenario) (ExposureReport, error) {
	outcome, err := RunScenario(a.grid, sc)
	if err != nil {
		return ExposureReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return ExposureReport{}, err
	}
	rep, err := a.Exposure(ctx, outcome.Flood)
	if err != nil {
		return ExposureReport{}, err
	}
	rep.ScenarioID = sc.ID
	rep.Method = sc.Method
	if rep.Method == "" {
		rep.Method = MethodBathtub
	}
	rep.RiverBaseM = outcome.RiverBaseM
	rep.TargetLevelM = outcome.TargetLevelM
	return rep, nil
}

// Exposure measures a flood already computed on the analyzer's grid.
func (a *Analyzer) Exposure(ctx context.Context, flood FloodResult) (ExposureReport, error) {
	if err := flood.Validate(); err != nil {
		return ExposureReport{}, err
	}
	if flood.Mask.Rows != a.grid.Rows || flood.Mask.Cols != a.grid.Cols {
		return ExposureReport{}, fmt.Errorf("%w: flood %dx%d, grid %dx%d",
			ErrShapeMismatch, flood.Mask.Rows, flood.Mask.Cols, a.grid.Rows, a.grid.Cols)
	}

	rep := ExposureReport{
		FloodedCells: flood.Mask.Count(),
		MaxDepthM:    floats.Max(flood.Depth),
		Facilities:   make(map[string]int, len(a.layers.Points)),
		GeneratedAt:  clock.Now().UTC(),
	}
	area, err := FloodedAreaKM2(flood.Mask, a.grid)
	if err != nil {
		return ExposureReport{}, err
	}
	rep.FloodedAreaKM2 = area

	polys := a.buildPolygons(flood.Mask)
	if err := ctx.Err(); err != nil {
		return ExposureReport{}, err
	}
	if polys != nil {
		rep.PolygonCount = len(polys.Polygons)
	}

	if a.layers.Roads != nil {
		if polys != nil {
			roads, err := FloodedRoadLength(*a.layers.Roads, *polys, a.metric)
			if err != nil {
				return ExposureReport{}, fmt.Errorf("road exposure: %w", err)
			}
			rep.Roads = &roads
		} else {
			a.logger.Warn("road exposure skipped, no flood polygons", "layer", a.layers.Roads.Name)
		}
	}

	ev, err := SelectPointEvaluator(polys, flood.Mask, a.grid.Transform)
	if err != nil {
		return ExposureReport{}, err
	}
	rep.PointEvaluator = ev.Name()
	for _, pl := range a.layers.Points {
		rep.Facilities[pl.Label] += CountExposed(pl, ev)
	}
	return rep, nil
}

// buildPolygons returns nil when vectorization is disabled, too large or
// failed.
func (a *Analyzer) buildPolygons(mask Mask) *PolygonSet {
	if a.builder == nil {
		return nil
	}
	if n := mask.Count(); a.cfg.MaxPolygonCells > 0 && n > a.cfg.MaxPolygonCells {
		a.logger.Info("vectorization skipped, flood too large",
			"flooded_cells", n, "max_polygon_cells", a.cfg.MaxPolygonCells)
		return nil
	}
	set, err := a.builder.BuildPolygons(mask, a.grid.Transform, a.grid.CRS)
	if err != nil {
		a.logger.Warn("vectorization failed, falling back to raster sampling", "error", err)
		return nil
	}
	return &set
}
