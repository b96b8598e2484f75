package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize scenario requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer analyzes a scenario request and renders its exposure report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader publishes exposure reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes scenario requests, analyzes them and publishes reports.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has published a report.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any reports yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-analyze-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	requests, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("read scenario requests failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(requests) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ScenariosConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.transformAndLoad(ctx, requests, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad analyzes each request in the batch, publishes the reports,
// and commits offsets. Rejected or failed scenarios are committed and skipped
// so one bad request never blocks the partition. Returns the number of
// published reports and false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, requests []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	reports := make([]domain.OutputEvent, 0, len(requests))
	analyzed := make([]domain.RawEvent, 0, len(requests))

	for _, raw := range requests {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logScenarioFailure(raw, err)
			p.metrics.AnalysisErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		reports = append(reports, out)
		analyzed = append(analyzed, raw)
	}

	if len(reports) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		p.logger.Error("publish reports failed", "error", err, "reports", len(reports))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ReportsProduced.Add(float64(len(reports)))
	p.logger.Debug("reports published",
		"reports", len(reports),
		"skipped", len(requests)-len(reports),
		"scenario_ids", reportKeys(reports),
	)

	for _, raw := range analyzed {
		p.commitOffset(ctx, raw)
	}

	return len(reports), true
}

// logScenarioFailure separates malformed requests, which the producer must
// fix, from scenarios that were valid but could not be analyzed.
func (p *Pipeline) logScenarioFailure(raw domain.RawEvent, err error) {
	attrs := []any{
		"error", err,
		"scenario_key", string(raw.Key),
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	}
	if errors.Is(err, domain.ErrInvalidScenario) {
		p.logger.Warn("scenario request rejected, skipping message", append(attrs, "reason", "invalid_request")...)
		return
	}
	p.logger.Error("scenario analysis failed, skipping message", append(attrs, "reason", "analysis")...)
}

func reportKeys(reports []domain.OutputEvent) []string {
	keys := make([]string, len(reports))
	for i, r := range reports {
		keys[i] = string(r.Key)
	}
	return keys
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
