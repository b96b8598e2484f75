// Command gensynth writes a synthetic river-valley DEM and a set of scenario
// fixtures. It runs the scenarios through the domain analyzer so the expected
// reports match real service output.
//
// Usage:
//
//	go run ./cmd/gensynth -out data/synthetic
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-exposure/internal/adapter/netcdfdem"
	"github.com/couchcryptid/flood-exposure/internal/domain"
)

// valley describes the synthetic terrain: a channel meandering north-south
// through a floodplain that rises towards both valley walls.
type valley struct {
	rows, cols int
	cellM      float64
	originX    float64
	originY    float64
	crs        string
	channelM   float64 // channel bed elevation at the north edge
	slope      float64 // bed drop per row, metres
	bankSlope  float64 // rise per metre away from the channel
	meanderAmp float64 // cells
	noDataRows int    // rows of nodata along the south edge
}

var defaultValley = valley{
	rows:       120,
	cols:       100,
	cellM:      10,
	originX:    500000,
	originY:    4_100_000,
	crs:        "EPSG:32633",
	channelM:   20,
	slope:      0.01,
	bankSlope:  0.02,
	meanderAmp: 8,
	noDataRows: 2,
}

const noDataValue = -9999.0

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for dem.nc, scenarios.json and reports.json")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	//nolint:gosec // G301: fixture directory.
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	// Set a fixed clock for reproducible GeneratedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.May, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	grid, err := defaultValley.grid()
	if err != nil {
		return err
	}
	demPath := filepath.Join(*outDir, "dem.nc")
	if err := netcdfdem.WriteDEM(demPath, netcdfdem.DefaultVariable, grid); err != nil {
		return fmt.Errorf("write dem: %w", err)
	}
	log.Printf("dem: %dx%d cells -> %s", grid.Rows, grid.Cols, demPath)

	requests := scenarioRequests()
	if err := writeJSON(filepath.Join(*outDir, "scenarios.json"), requests); err != nil {
		return err
	}

	analyzer, err := domain.NewAnalyzer(grid, domain.Layers{}, domain.NewVectorizer(), domain.AnalyzerConfig{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	reports := make([]domain.ExposureReport, 0, len(requests))
	for _, req := range requests {
		sc, err := req.Scenario(domain.DefaultScenarioDefaults())
		if err != nil {
			return err
		}
		rep, err := analyzer.Analyze(context.Background(), sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
		log.Printf("%s: %s, %d cells, %.4f km2", rep.ScenarioID, rep.Method, rep.FloodedCells, rep.FloodedAreaKM2)
		reports = append(reports, rep)
	}
	return writeJSON(filepath.Join(*outDir, "reports.json"), reports)
}

// grid renders the valley as a north-up elevation grid.
func (v valley) grid() (*domain.ElevationGrid, error) {
	crs, err := domain.ParseCRS(v.crs)
	if err != nil {
		return nil, err
	}
	values := make([]float64, v.rows*v.cols)
	for r := range v.rows {
		centre := v.channelCol(r)
		bed := v.channelM - v.slope*float64(r)
		for c := range v.cols {
			i := r*v.cols + c
			if r >= v.rows-v.noDataRows {
				values[i] = noDataValue
				continue
			}
			distM := math.Abs(float64(c)-centre) * v.cellM
			values[i] = bed + v.bankSlope*distM
		}
	}
	nd := noDataValue
	t := domain.NewNorthUpTransform(v.originX, v.originY, v.cellM, v.cellM)
	return domain.NewElevationGrid(v.rows, v.cols, values, t, crs, &nd)
}

// channelCol is the fractional column of the channel centre on row r.
func (v valley) channelCol(r int) float64 {
	phase := 2 * math.Pi * float64(r) / float64(v.rows)
	return float64(v.cols)/2 + v.meanderAmp*math.Sin(phase)
}

func scenarioRequests() []domain.ScenarioRequest {
	f := func(v float64) *float64 { return &v }
	return []domain.ScenarioRequest{
		{ID: "bathtub-0.5m", Method: "bathtub", LevelAboveRiverM: f(0.5)},
		{ID: "bathtub-1m", Method: "bathtub", LevelAboveRiverM: f(1)},
		{ID: "bathtub-2m", Method: "bathtub", LevelAboveRiverM: f(2)},
		{ID: "hand-1m", Method: "hand", LevelAboveRiverM: f(1)},
		{ID: "hand-1m-near", Method: "hand", LevelAboveRiverM: f(1), HANDMaxDrainageDistanceM: f(150)},
		{ID: "target-21m", Method: "bathtub", TargetLevelM: f(21)},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec // G306: fixture files are world-readable.
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("wrote %s", path)
	return nil
}
