// Command analyze screens ISD-Lite observation files for row completeness.
// It writes two rejection reports and a candidate list of files whose
// missing-row counts are within limits. The candidate list is meant to be
// reviewed, optionally edited, and then fed to the generate command.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/amy-epw-gen/internal/adapter/isd"
	"github.com/couchcryptid/amy-epw-gen/internal/adapter/report"
	"github.com/couchcryptid/amy-epw-gen/internal/config"
	"github.com/couchcryptid/amy-epw-gen/internal/domain"
	"github.com/couchcryptid/amy-epw-gen/internal/observability"
	"github.com/couchcryptid/amy-epw-gen/internal/pipeline"
)

func main() {
	inputs := flag.String("inputs", "", "directory holding ISD-Lite observation files")
	outputDir := flag.String("output-dir", "analysis", "directory for the analysis CSVs")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if *inputs == "" {
		logger.Error("-inputs is required")
		os.Exit(2)
	}

	files, err := isd.Discover(*inputs)
	if err != nil {
		logger.Error("failed to discover observation files", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Error("no observation files found", "inputs", *inputs)
		os.Exit(1)
	}

	items := make([]pipeline.Item, len(files))
	for i, f := range files {
		items[i] = pipeline.Item{Path: f.Path, WMO: f.WMO, WBAN: f.WBAN, Year: f.Year}
	}

	analyzer := pipeline.NewAnalyzer(isd.NewLoader(logger), logger, observability.NewMetrics(), pipeline.Options{
		Workers:       cfg.WorkerCount(),
		ExpectedHours: cfg.ExpectedHoursFor,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := analyzer.Run(ctx, items)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	entries := make([]domain.AnalysisEntry, len(results))
	for i, r := range results {
		entries[i] = domain.AnalysisEntry{ID: entryID(*inputs, r.Item.Path), Report: r.Report}
	}
	set := domain.Partition(entries, cfg.Thresholds())

	if err := writeReports(*outputDir, set); err != nil {
		logger.Error("failed to write analysis reports", "error", err)
		os.Exit(1)
	}

	logger.Info("analysis reports written",
		"output_dir", *outputDir,
		"accepted", len(set.Accepted),
		"missing_total_high", len(set.MissingTotalHigh),
		"missing_consec_high", len(set.MissingConsecHigh),
	)
}

// entryID names an observation file in the CSV artifacts by its path
// relative to the inputs root. Discovery walks subdirectories, so the base
// name alone would not lead the generate command back to the file.
func entryID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// writeReports renders the partition as the three CSV artifacts.
func writeReports(dir string, set domain.AnalysisSet) error {
	if err := report.WriteRejections(filepath.Join(dir, report.MissingTotalFileName), toRows(set.MissingTotalHigh)); err != nil {
		return err
	}
	if err := report.WriteRejections(filepath.Join(dir, report.MissingConsecutiveFileName), toRows(set.MissingConsecHigh)); err != nil {
		return err
	}
	accepted := make([]string, len(set.Accepted))
	for i, e := range set.Accepted {
		accepted[i] = e.ID
	}
	return report.WriteAcceptedList(filepath.Join(dir, report.AcceptedFileName), accepted)
}

func toRows(entries []domain.AnalysisEntry) []report.AnalysisRow {
	rows := make([]report.AnalysisRow, len(entries))
	for i, e := range entries {
		rows[i] = report.RowFromReport(e.ID, e.Report)
	}
	return rows
}
