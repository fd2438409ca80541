package pipeline

import (
	"context"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Assembler runs the domain analyzers over a dataset and merges their results.
// With parallel enabled each analyzer runs in its own goroutine; the result is
// identical either way.
type Assembler struct {
	parallel bool
	metrics  *observability.Metrics
}

// NewAssembler creates an Assembler.
func NewAssembler(parallel bool, metrics *observability.Metrics) *Assembler {
	return &Assembler{parallel: parallel, metrics: metrics}
}

// Assemble computes the climate report for ds. The dataset is not modified.
func (a *Assembler) Assemble(ctx context.Context, ds domain.Dataset, latitude *float64) (domain.ClimateReport, error) {
	start := time.Now()
	defer func() {
		a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		a.metrics.DatasetRecords.Observe(float64(len(ds)))
	}()

	sorted := domain.SortedCopy(ds)
	analyzers := domain.Analyzers(latitude)

	var parts domain.ReportParts
	if !a.parallel {
		for _, analyze := range analyzers {
			if err := ctx.Err(); err != nil {
				return domain.ClimateReport{}, err
			}
			analyze(sorted, &parts)
		}
		return domain.AssembleReport(parts), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, analyze := range analyzers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyze(sorted, &parts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ClimateReport{}, err
	}
	return domain.AssembleReport(parts), nil
}
