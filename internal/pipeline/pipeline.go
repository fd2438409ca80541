package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the consume-generate-publish loop for report requests.
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

// CheckReadiness returns nil once the pipeline has published at least one report,
// or an error describing why the service is not yet ready.
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

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-generate-publish cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.RequestsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	loaded, ok := p.generateAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// generateAndLoad builds a report for each request in the batch, publishes the
// successes, and commits offsets. Invalid and not-found requests are skipped so
// a poison message cannot stall the partition. Provider and generation failures
// are retried in place with backoff. No offset in the batch is committed until
// the reports are published, since a commit also covers every earlier offset.
// Returns the number of published reports and false if the pipeline should stop.
func (p *Pipeline) generateAndLoad(ctx context.Context, rawBatch []domain.RawRequest, backoff *time.Duration) (int, bool) {
	reports := make([]domain.LocationReport, 0, len(rawBatch))

	for _, raw := range rawBatch {
		report, err := p.transformWithRetry(ctx, raw, backoff)
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			p.logger.Warn("report request failed, skipping message",
				"error", err,
				"reason", ErrorReason(err),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			continue
		}
		reports = append(reports, report)
	}

	if len(reports) > 0 {
		if err := p.loader.LoadBatch(ctx, reports); err != nil {
			p.logger.Error("publish batch failed", "error", err, "batch_size", len(reports))
			return 0, p.backoffOrStop(ctx, backoff)
		}
		p.metrics.ReportsPublished.Add(float64(len(reports)))
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}

	return len(reports), true
}

// transformWithRetry generates the report for one request, backing off while
// the failure is retryable. It returns the first non-retryable error, or the
// context error once the pipeline is stopping.
func (p *Pipeline) transformWithRetry(ctx context.Context, raw domain.RawRequest, backoff *time.Duration) (domain.LocationReport, error) {
	for {
		report, err := p.transformer.Transform(ctx, raw)
		if err == nil {
			return report, nil
		}
		if ctx.Err() != nil {
			return domain.LocationReport{}, ctx.Err()
		}
		reason := ErrorReason(err)
		p.metrics.RequestErrors.WithLabelValues(reason).Inc()
		if !Retryable(err) {
			return domain.LocationReport{}, err
		}
		p.logger.Warn("report request failed, retrying",
			"error", err,
			"reason", reason,
			"backoff", *backoff,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		if !p.backoffOrStop(ctx, backoff) {
			return domain.LocationReport{}, ctx.Err()
		}
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawRequest) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// Retryable reports whether a request failure is transient. Only invalid and
// not-found requests are dropped.
func Retryable(err error) bool {
	switch ErrorReason(err) {
	case "invalid", "not_found":
		return false
	default:
		return true
	}
}

// ErrorReason buckets a request failure for metrics and logs.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrLocationRequired):
		return "invalid"
	case errors.Is(err, domain.ErrLocationNotFound):
		return "not_found"
	case errors.Is(err, ErrFetchFailed):
		return "provider"
	default:
		return "generate"
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
