package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
	"github.com/couchcryptid/flood-exposure/internal/pipeline"
	"github.com/ctessum/geom"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRampAnalyzer(t *testing.T) *domain.Analyzer {
	t.Helper()
	crs := domain.MustParseCRS("EPSG:32633")
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i / 10)
	}
	grid, err := domain.NewElevationGrid(10, 10, values, domain.NewNorthUpTransform(0, 10, 1, 1), crs, nil)
	require.NoError(t, err)

	layers := domain.Layers{
		Roads: &domain.RoadLayer{Name: "roads", CRS: crs, Features: []domain.RoadFeature{
			{Geometry: geom.LineString{{X: 2.5, Y: 12}, {X: 2.5, Y: -2}}, Category: "primary"},
		}},
		Points: []domain.PointLayer{{Label: "hospitals", CRS: crs, Features: []domain.Facility{
			{Location: geom.Point{X: 5.5, Y: 9.5}},
		}}},
	}
	a, err := domain.NewAnalyzer(grid, layers, domain.NewVectorizer(), domain.AnalyzerConfig{}, discardLogger())
	require.NoError(t, err)
	return a
}

func TestScenarioTransformer_Transform(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(newRampAnalyzer(t), domain.DefaultScenarioDefaults(), discardLogger(), metrics)

	raw := domain.RawEvent{Key: []byte("evt-1"), Value: []byte(`{"method":"bathtub","target_level_m":4}`)}
	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []byte("evt-1"), out.Key)
	assert.Equal(t, "bathtub", out.Headers["method"])
	assert.Equal(t, "2026-05-01T08:30:00Z", out.Headers["generated_at"])

	var rep domain.ExposureReport
	require.NoError(t, json.Unmarshal(out.Value, &rep))
	assert.Equal(t, "evt-1", rep.ScenarioID)
	assert.Equal(t, 50, rep.FloodedCells)
	assert.InDelta(t, 5e-5, rep.FloodedAreaKM2, 1e-15)
	require.NotNil(t, rep.Roads)
	assert.InDelta(t, 0.005, rep.Roads.ByCategoryKM["primary"], 1e-12)
	assert.Equal(t, 1, rep.Facilities["hospitals"])
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.AnalysisDuration))
}

func TestScenarioTransformer_InvalidRequest(t *testing.T) {
	tfm := pipeline.NewTransformer(newRampAnalyzer(t), domain.DefaultScenarioDefaults(), discardLogger(), observability.NewMetricsForTesting())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
	require.ErrorIs(t, err, domain.ErrInvalidScenario)

	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"method":"hand","level_above_river_m":1,"hand_percentile":0}`)})
	require.ErrorIs(t, err, domain.ErrInvalidScenario)
}

func TestScenarioTransformer_Evaluate(t *testing.T) {
	tfm := pipeline.NewTransformer(newRampAnalyzer(t), domain.DefaultScenarioDefaults(), discardLogger(), observability.NewMetricsForTesting())

	rep, err := tfm.Evaluate(context.Background(), domain.Scenario{
		ID: "hand-1", Method: domain.MethodHAND, LevelAboveRiverM: 2,
		RiverPercentile: 5, HAND: domain.HANDConfig{Percentile: 10, MaxDrainageDistanceM: 1.5},
	})
	require.NoError(t, err)

	// Drainage is row 0; cells more than 1.5 m away (rows 2+) are damped.
	assert.Equal(t, domain.MethodHAND, rep.Method)
	assert.Equal(t, 20, rep.FloodedCells)
}
