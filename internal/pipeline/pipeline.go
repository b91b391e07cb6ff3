// Package pipeline orchestrates the per-file generation cycle: load hourly
// observations, gate on row completeness, repair field gaps, merge onto the
// station's baseline, and write the result. Every file either produces an
// output or a recorded rejection; data-integrity failures abort the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
	"github.com/couchcryptid/amy-epw-gen/internal/observability"
)

// ObservationSource loads one station-year of hourly observations.
type ObservationSource interface {
	Load(ctx context.Context, path, stationID string, year, expectedHours int) (domain.StationYearDataset, error)
}

// BaselineSource resolves a station's typical-year baseline records.
type BaselineSource interface {
	BaselineRecords(ctx context.Context, wmo string) ([]domain.BaselineRecord, error)
}

// OutputWriter renders one station-year's merged records and returns the
// written path.
type OutputWriter interface {
	Write(ctx context.Context, wmo, wban string, year int, merged []domain.MergedRecord) (string, error)
}

// OutcomePublisher emits per-file outcomes for downstream consumers.
type OutcomePublisher interface {
	Publish(ctx context.Context, outcomes []domain.Outcome) error
}

// Item identifies one station-year observation file to process.
type Item struct {
	Path string
	WMO  string
	WBAN string
	Year int
}

// StationID returns the composite <WMO>-<WBAN> station identifier.
func (i Item) StationID() string { return i.WMO + "-" + i.WBAN }

// ID returns the <WMO>-<WBAN>-<year> station-year identifier.
func (i Item) ID() string { return fmt.Sprintf("%s-%d", i.StationID(), i.Year) }

// Options tunes a generation batch.
type Options struct {
	Thresholds domain.Thresholds
	Workers    int
	// PreAccepted marks items as coming from an already-reviewed candidate
	// list. The row-completeness gate is skipped for such items: the list is
	// the operator's decision and is honored verbatim.
	PreAccepted bool
	// ExpectedHours resolves the hour grid for a calendar year. Nil means
	// derive it from the calendar.
	ExpectedHours func(year int) int
}

// Batch runs the generation cycle over a set of station-year files.
type Batch struct {
	observations ObservationSource
	baselines    BaselineSource
	output       OutputWriter
	publisher    OutcomePublisher // optional
	logger       *slog.Logger
	metrics      *observability.Metrics
	opts         Options
	runID        string
	done         atomic.Int64
	total        atomic.Int64
}

// New creates a Batch with the given stages and observability. publisher may
// be nil when outcome publishing is disabled.
func New(obs ObservationSource, baselines BaselineSource, output OutputWriter, publisher OutcomePublisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Batch {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ExpectedHours == nil {
		opts.ExpectedHours = domain.HoursInYear
	}
	return &Batch{
		observations: obs,
		baselines:    baselines,
		output:       output,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
		opts:         opts,
		runID:        uuid.NewString(),
	}
}

// CheckReadiness returns nil once the batch has completed at least one file,
// or an error describing why the service is not yet ready.
func (b *Batch) CheckReadiness(_ context.Context) error {
	if b.done.Load() == 0 {
		return errors.New("batch has not completed any files yet")
	}
	return nil
}

// Progress reports how many files the batch has completed so far out of the
// number it was given. Both are zero before Run is called.
func (b *Batch) Progress() (done, total int) {
	return int(b.done.Load()), int(b.total.Load())
}

// Run processes every item and returns one outcome per item in input order.
// Rejections are outcomes, not errors; Run fails only on malformed input
// data, missing baselines, or write failures.
func (b *Batch) Run(ctx context.Context, items []Item) ([]domain.Outcome, error) {
	b.logger.Info("batch started",
		"run_id", b.runID,
		"files", len(items),
		"workers", b.opts.Workers,
		"pre_accepted", b.opts.PreAccepted,
	)
	b.metrics.BatchRunning.Set(1)
	defer b.metrics.BatchRunning.Set(0)
	b.total.Store(int64(len(items)))

	outcomes := make([]domain.Outcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			outcome, err := b.processFile(gctx, item)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			b.done.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accepted := 0
	for _, o := range outcomes {
		if o.Accepted {
			accepted++
		}
	}
	b.logger.Info("batch finished",
		"run_id", b.runID,
		"accepted", accepted,
		"rejected", len(outcomes)-accepted,
	)

	b.publishOutcomes(ctx, outcomes)
	return outcomes, nil
}

// processFile runs one station-year through the full cycle.
func (b *Batch) processFile(ctx context.Context, item Item) (domain.Outcome, error) {
	start := time.Now()
	expected := b.opts.ExpectedHours(item.Year)
	b.metrics.FilesProcessed.Inc()

	ds, err := b.observations.Load(ctx, item.Path, item.StationID(), item.Year, expected)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("load %s: %w", item.ID(), err)
	}

	if !b.opts.PreAccepted {
		report, err := domain.AnalyzeCompleteness(ds, expected)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("analyze %s: %w", item.ID(), err)
		}
		b.metrics.MissingRows.Observe(float64(report.TotalMissingRows))
		if report.ExceedsTotal(b.opts.Thresholds) {
			return b.reject(item, domain.RejectionReason{Kind: domain.ReasonTooManyMissingRows}), nil
		}
		if report.ExceedsConsecutive(b.opts.Thresholds) {
			return b.reject(item, domain.RejectionReason{Kind: domain.ReasonTooManyConsecutiveMissingRows}), nil
		}
	}

	repaired, err := domain.Fill(ds, b.opts.Thresholds, expected)
	if err != nil {
		var rejErr *domain.RejectionError
		if errors.As(err, &rejErr) {
			return b.reject(item, rejErr.Reason), nil
		}
		return domain.Outcome{}, fmt.Errorf("repair %s: %w", item.ID(), err)
	}
	b.metrics.ValuesFilled.WithLabelValues("interpolated").Add(float64(repaired.Stats.ValuesInterpolated))
	b.metrics.ValuesFilled.WithLabelValues("imputed").Add(float64(repaired.Stats.ValuesImputed))

	baseline, err := b.baselines.BaselineRecords(ctx, item.WMO)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("baseline for %s: %w", item.ID(), err)
	}

	merged, err := domain.Merge(repaired, baseline)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("merge %s: %w", item.ID(), err)
	}

	path, err := b.output.Write(ctx, item.WMO, item.WBAN, item.Year, merged)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("write %s: %w", item.ID(), err)
	}

	b.metrics.FilesAccepted.Inc()
	b.metrics.FillDuration.Observe(time.Since(start).Seconds())
	b.logger.Info("generated weather file",
		"run_id", b.runID,
		"id", item.ID(),
		"path", path,
		"interpolated", repaired.Stats.ValuesInterpolated,
		"imputed", repaired.Stats.ValuesImputed,
	)

	return domain.Outcome{
		StationID:   item.StationID(),
		Year:        item.Year,
		Accepted:    true,
		OutputPath:  path,
		ProcessedAt: domain.Now(),
	}, nil
}

// reject records a rejection outcome for the item.
func (b *Batch) reject(item Item, reason domain.RejectionReason) domain.Outcome {
	b.metrics.FilesRejected.WithLabelValues(string(reason.Kind)).Inc()
	b.logger.Warn("rejected station-year",
		"run_id", b.runID,
		"id", item.ID(),
		"reason", reason.String(),
	)
	return domain.Outcome{
		StationID:   item.StationID(),
		Year:        item.Year,
		Accepted:    false,
		Reason:      &reason,
		ProcessedAt: domain.Now(),
	}
}

// publishOutcomes sends the batch's outcomes to the publisher if one is
// configured. Publishing is best-effort: the weather files are already on
// disk, so a broker outage only costs the notification.
func (b *Batch) publishOutcomes(ctx context.Context, outcomes []domain.Outcome) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, outcomes); err != nil {
		b.logger.Warn("publish outcomes failed", "run_id", b.runID, "error", err)
	}
}
