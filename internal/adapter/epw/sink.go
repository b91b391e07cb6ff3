package epw

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// Sink writes generated weather files into an output directory. Rows keep
// the baseline's untouched columns, so the sink shares the Source's cache
// to recover each station's header.
type Sink struct {
	dir    string
	source *Source
	logger *slog.Logger
}

// NewSink creates a Sink writing into dir.
func NewSink(dir string, source *Source, logger *slog.Logger) *Sink {
	return &Sink{dir: dir, source: source, logger: logger}
}

// Write renders one station-year's merged records to
// <dir>/<WMO>-<WBAN>-<year>.amy.epw and returns the written path. The file
// is written through a temp file and renamed so readers never observe a
// partial file.
func (s *Sink) Write(ctx context.Context, wmo, wban string, year int, merged []domain.MergedRecord) (string, error) {
	baseline, err := s.source.Baseline(ctx, wmo)
	if err != nil {
		return "", fmt.Errorf("resolve header: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%d.amy.epw", wmo, wban, year)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, baseline.Header, merged, year); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("finalize %s: %w", path, err)
	}

	s.logger.Info("wrote weather file", "path", path, "hours", len(merged))
	return path, nil
}
