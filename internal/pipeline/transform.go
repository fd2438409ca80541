package pipeline

import (
	"context"
	"log/slog"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// Generator produces a location report for a validated request.
type Generator interface {
	Generate(ctx context.Context, req domain.ReportRequest) (domain.LocationReport, error)
}

// ReportTransformer implements Transformer by decoding the request payload and
// handing it to a Generator.
type ReportTransformer struct {
	generator Generator
	logger    *slog.Logger
}

// NewTransformer creates a ReportTransformer backed by generator.
func NewTransformer(generator Generator, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		generator: generator,
		logger:    logger,
	}
}

func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawRequest) (domain.LocationReport, error) {
	req, err := domain.ParseReportRequest(raw.Value)
	if err != nil {
		return domain.LocationReport{}, err
	}
	if req.RequestID == "" {
		req.RequestID = raw.Headers["request_id"]
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}

	t.logger.Debug("generating report", "request_id", req.RequestID, "offset", raw.Offset)
	return t.generator.Generate(ctx, req)
}
