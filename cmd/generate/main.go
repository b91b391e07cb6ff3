// Command generate produces actual-year EnergyPlus Weather files. It loads
// ISD-Lite observations for the requested station-years, repairs small gaps,
// merges the observed fields onto each station's typical-year baseline, and
// writes one EPW file per accepted station-year.
//
// Inputs come either from a reviewed candidate list (-accepted, produced by
// the analyze command and optionally edited by hand) or from discovering
// observation files under -isd-dir filtered by -years and -wmo-indices.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/amy-epw-gen/internal/adapter/epw"
	httpadapter "github.com/couchcryptid/amy-epw-gen/internal/adapter/http"
	"github.com/couchcryptid/amy-epw-gen/internal/adapter/isd"
	kafkaadapter "github.com/couchcryptid/amy-epw-gen/internal/adapter/kafka"
	"github.com/couchcryptid/amy-epw-gen/internal/adapter/report"
	"github.com/couchcryptid/amy-epw-gen/internal/config"
	"github.com/couchcryptid/amy-epw-gen/internal/observability"
	"github.com/couchcryptid/amy-epw-gen/internal/pipeline"
)

func main() {
	isdDir := flag.String("isd-dir", "", "directory holding ISD-Lite observation files")
	tmyDir := flag.String("tmy-dir", "", "directory holding typical-year EPW baseline files")
	outDir := flag.String("out", "out", "directory for generated weather files")
	accepted := flag.String("accepted", "", "candidate list CSV; when set, its entries are processed verbatim")
	years := flag.String("years", "", "comma-separated years and ranges, e.g. 2000,2003-2005")
	wmoIndices := flag.String("wmo-indices", "", "comma-separated WMO indices to include")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if *isdDir == "" || *tmyDir == "" {
		logger.Error("both -isd-dir and -tmy-dir are required")
		os.Exit(2)
	}

	items, preAccepted, err := resolveItems(*accepted, *isdDir, *years, *wmoIndices)
	if err != nil {
		logger.Error("failed to resolve input files", "error", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		logger.Error("no observation files matched the requested years and stations")
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	loader := isd.NewLoader(logger)
	source := epw.NewSource(*tmyDir, cfg.BaselineCacheSize, logger)
	sink := epw.NewSink(*outDir, source, logger)

	var publisher pipeline.OutcomePublisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("outcome publishing enabled", "topic", cfg.KafkaOutcomeTopic)
	}

	batch := pipeline.New(loader, source, sink, publisher, logger, metrics, pipeline.Options{
		Thresholds:    cfg.Thresholds(),
		Workers:       cfg.WorkerCount(),
		PreAccepted:   preAccepted,
		ExpectedHours: cfg.ExpectedHoursFor,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Large batches run long enough to be worth scraping; the server is
	// opt-in via HTTP_ADDR.
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, batch, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	outcomes, err := batch.Run(ctx, items)
	if err != nil {
		logger.Error("generation batch failed", "error", err)
		os.Exit(1)
	}

	errorsPath := filepath.Join(*outDir, report.ErrorsFileName)
	rejected := 0
	for i, o := range outcomes {
		if o.Accepted {
			continue
		}
		rejected++
		if err := report.AppendError(errorsPath, filepath.Base(items[i].Path), o.Reason.String()); err != nil {
			logger.Error("failed to record rejection", "error", err)
		}
	}
	if rejected > 0 {
		logger.Warn("some files were rejected", "rejected", rejected, "details", errorsPath)
	}
	logger.Info("generation complete", "accepted", len(outcomes)-rejected, "rejected", rejected, "out", *outDir)
}

// resolveItems turns the command's input flags into the station-year work
// list. A candidate list wins over discovery and marks the items as already
// reviewed.
func resolveItems(acceptedPath, isdDir, years, wmoIndices string) ([]pipeline.Item, bool, error) {
	if acceptedPath != "" {
		entries, err := report.ReadAcceptedList(acceptedPath)
		if err != nil {
			return nil, false, err
		}
		items := make([]pipeline.Item, 0, len(entries))
		for _, entry := range entries {
			path := entry
			if !filepath.IsAbs(path) {
				path = filepath.Join(isdDir, entry)
			}
			file, err := isd.ParseName(path)
			if err != nil {
				return nil, false, fmt.Errorf("candidate list entry %q: %w", entry, err)
			}
			items = append(items, itemFromFile(file))
		}
		return items, true, nil
	}

	yearList, err := parseYears(years)
	if err != nil {
		return nil, false, err
	}
	files, err := isd.Discover(isdDir)
	if err != nil {
		return nil, false, err
	}
	files = isd.FindForYears(files, yearList, parseWMOIndices(wmoIndices))

	items := make([]pipeline.Item, len(files))
	for i, f := range files {
		items[i] = itemFromFile(f)
	}
	return items, false, nil
}

func itemFromFile(f isd.StationFile) pipeline.Item {
	return pipeline.Item{Path: f.Path, WMO: f.WMO, WBAN: f.WBAN, Year: f.Year}
}

// parseYears expands a comma-separated list of years and inclusive ranges,
// e.g. "2000,2003-2005". Years outside 1900 through the current year are
// rejected; ISD coverage does not extend past those bounds.
func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	currentYear := time.Now().Year()
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if from, to, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(from), strings.TrimSpace(to)
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", lo)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", hi)
		}
		if start > end {
			return nil, fmt.Errorf("year range %q is reversed", part)
		}
		for y := start; y <= end; y++ {
			if y < 1900 || y > currentYear {
				return nil, fmt.Errorf("year %d is outside 1900-%d", y, currentYear)
			}
			years = append(years, y)
		}
	}
	return years, nil
}

// parseWMOIndices splits a comma-separated list of WMO indices.
func parseWMOIndices(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
