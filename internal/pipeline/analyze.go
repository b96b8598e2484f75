package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
)

// ScenarioAnalyzer runs one scenario to a report.
type ScenarioAnalyzer interface {
	Analyze(ctx context.Context, sc domain.Scenario) (domain.ExposureReport, error)
}

// ScenarioTransformer implements Transformer by decoding scenario requests
// and analyzing them against the loaded DEM and layers. It also serves
// synchronous evaluations for the HTTP API.
type ScenarioTransformer struct {
	analyzer ScenarioAnalyzer
	defaults domain.ScenarioDefaults
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a ScenarioTransformer.
func NewTransformer(analyzer ScenarioAnalyzer, defaults domain.ScenarioDefaults, logger *slog.Logger, metrics *observability.Metrics) *ScenarioTransformer {
	return &ScenarioTransformer{
		analyzer: analyzer,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// Defaults returns the values applied to fields a request leaves out.
func (t *ScenarioTransformer) Defaults() domain.ScenarioDefaults { return t.defaults }

func (t *ScenarioTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	sc, err := domain.ParseRawEvent(raw, t.defaults)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	rep, err := t.Evaluate(ctx, sc)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return ReportEvent(rep)
}

// Evaluate analyzes a parsed scenario and records analysis metrics.
func (t *ScenarioTransformer) Evaluate(ctx context.Context, sc domain.Scenario) (domain.ExposureReport, error) {
	start := time.Now()
	rep, err := t.analyzer.Analyze(ctx, sc)
	if err != nil {
		return domain.ExposureReport{}, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}
	t.metrics.AnalysisDuration.WithLabelValues(string(rep.Method)).Observe(time.Since(start).Seconds())
	t.metrics.FloodedAreaKM2.Observe(rep.FloodedAreaKM2)
	t.logger.Debug("scenario analyzed",
		"scenario_id", rep.ScenarioID,
		"method", rep.Method,
		"flooded_cells", rep.FloodedCells,
		"flooded_area_km2", rep.FloodedAreaKM2,
		"point_evaluator", rep.PointEvaluator,
	)
	return rep, nil
}

// ReportEvent serializes a report for the sink topic, keyed by scenario id.
func ReportEvent(rep domain.ExposureReport) (domain.OutputEvent, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize exposure report: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(rep.ScenarioID),
		Value: data,
		Headers: map[string]string{
			"method":       string(rep.Method),
			"generated_at": rep.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
