package epw

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// Baseline is a parsed typical-meteorological-year file for one station.
type Baseline struct {
	WMO     string
	Path    string
	Header  []string
	Records []domain.BaselineRecord
}

// Source resolves station baselines from a directory of TMY EPW files. A
// baseline file's name carries the station's WMO index, so lookup is by
// substring match on the file name. Parsed baselines are LRU-cached:
// processing several years of one station reuses the same parse.
type Source struct {
	dir    string
	cache  *baselineCache
	logger *slog.Logger
}

// NewSource creates a Source over dir holding up to cacheSize parsed
// baselines in memory.
func NewSource(dir string, cacheSize int, logger *slog.Logger) *Source {
	return &Source{
		dir:    dir,
		cache:  newBaselineCache(cacheSize),
		logger: logger,
	}
}

// Baseline returns the parsed baseline for the given WMO index.
func (s *Source) Baseline(ctx context.Context, wmo string) (*Baseline, error) {
	if b, ok := s.cache.get(wmo); ok {
		return b, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.findFile(wmo)
	if err != nil {
		return nil, err
	}

	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := file.BaselineRecords()
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}

	b := &Baseline{WMO: wmo, Path: path, Header: file.Header, Records: records}
	s.cache.put(wmo, b)
	s.logger.Debug("loaded baseline", "wmo", wmo, "path", path, "hours", len(records))
	return b, nil
}

// BaselineRecords returns just the hourly records of the station's baseline.
// It implements pipeline.BaselineSource.
func (s *Source) BaselineRecords(ctx context.Context, wmo string) ([]domain.BaselineRecord, error) {
	b, err := s.Baseline(ctx, wmo)
	if err != nil {
		return nil, err
	}
	return b.Records, nil
}

// findFile locates the .epw file in dir whose name contains the WMO index.
func (s *Source) findFile(wmo string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read baseline directory %s: %w", s.dir, err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(filepath.Ext(name), ".epw") && strings.Contains(name, wmo) {
			matches = append(matches, filepath.Join(s.dir, name))
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no baseline file for wmo index %s in %s", wmo, s.dir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("wmo index %s matches %d baseline files in %s", wmo, len(matches), s.dir)
	}
}
