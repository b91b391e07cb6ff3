package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
	"github.com/couchcryptid/amy-epw-gen/internal/observability"
)

// AnalyzedFile pairs an observation file with its completeness report.
type AnalyzedFile struct {
	Item   Item
	Report domain.CompletenessReport
}

// Analyzer runs the row-completeness analysis over a set of station-year
// files without repairing or writing anything. Its results feed the
// candidate list that a person reviews before generation.
type Analyzer struct {
	observations ObservationSource
	logger       *slog.Logger
	metrics      *observability.Metrics
	opts         Options
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(obs ObservationSource, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Analyzer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ExpectedHours == nil {
		opts.ExpectedHours = domain.HoursInYear
	}
	return &Analyzer{observations: obs, logger: logger, metrics: metrics, opts: opts}
}

// Run analyzes every item and returns reports in input order. Any file that
// cannot be loaded or violates the hourly sequence contract fails the run.
func (a *Analyzer) Run(ctx context.Context, items []Item) ([]AnalyzedFile, error) {
	a.logger.Info("analysis started", "files", len(items), "workers", a.opts.Workers)

	results := make([]AnalyzedFile, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			expected := a.opts.ExpectedHours(item.Year)
			ds, err := a.observations.Load(gctx, item.Path, item.StationID(), item.Year, expected)
			if err != nil {
				return fmt.Errorf("load %s: %w", item.ID(), err)
			}
			report, err := domain.AnalyzeCompleteness(ds, expected)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", item.ID(), err)
			}
			a.metrics.MissingRows.Observe(float64(report.TotalMissingRows))
			results[i] = AnalyzedFile{Item: item, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("analysis finished", "files", len(results))
	return results, nil
}
