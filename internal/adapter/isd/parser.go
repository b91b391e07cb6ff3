// Package isd parses NOAA ISD-Lite station-year observation files into the
// engine's hourly record sequences.
//
// ISD-Lite rows are whitespace-separated fixed columns:
//
//	year month day hour  temp  dewpt  slp  wdir  wspd  sky  precip1h precip6h
//
// with temperatures and wind speed scaled by 10, sea-level pressure in tenths
// of hPa, and -9999 as the missing sentinel. Values are converted to the
// engine's canonical units at this boundary: °C, °C, Pa, degrees, m/s.
// Sentinels become absent map entries; the engine never sees -9999.
package isd

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// missingSentinel marks an unreported value in ISD-Lite files.
const missingSentinel = -9999

// Column positions within an ISD-Lite row. Only the first nine columns are
// consumed; sky condition and precipitation are not tracked fields.
const (
	colYear = iota
	colMonth
	colDay
	colHour
	colAirTemp
	colDewPoint
	colSeaLevelPressure
	colWindDirection
	colWindSpeed
	minColumns = colWindSpeed + 1
)

// Loader reads ISD-Lite observation files from disk.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load parses the observation file at path into a station-year dataset on
// the expectedHours grid. Files ending in .gz are decompressed transparently.
func (l *Loader) Load(_ context.Context, path, stationID string, year, expectedHours int) (domain.StationYearDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.StationYearDataset{}, fmt.Errorf("open observation file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return domain.StationYearDataset{}, fmt.Errorf("decompress %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	ds, err := Parse(r, stationID, year, expectedHours)
	if err != nil {
		return domain.StationYearDataset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	l.logger.Debug("parsed observation file", "path", path, "rows", len(ds.Records))
	return ds, nil
}

// Parse reads ISD-Lite rows for one station-year. Rows from a different
// calendar year are a contract violation. When a leap year is parsed onto an
// 8760-hour grid, February 29th observations are dropped and later hours
// shift back a day so the grid matches a non-leap baseline.
func Parse(r io.Reader, stationID string, year, expectedHours int) (domain.StationYearDataset, error) {
	var records []domain.HourlyRecord

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec, keep, err := parseRow(text, year, expectedHours)
		if err != nil {
			return domain.StationYearDataset{}, fmt.Errorf("line %d: %w", line, err)
		}
		if keep {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.StationYearDataset{}, fmt.Errorf("read: %w", err)
	}

	return domain.NewStationYearDataset(stationID, year, records, expectedHours)
}

func parseRow(text string, year, expectedHours int) (domain.HourlyRecord, bool, error) {
	cols := strings.Fields(text)
	if len(cols) < minColumns {
		return domain.HourlyRecord{}, false, fmt.Errorf("row has %d columns, want at least %d", len(cols), minColumns)
	}

	ints := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(cols[i])
		if err != nil {
			return domain.HourlyRecord{}, false, fmt.Errorf("column %d: %w", i, err)
		}
		ints[i] = v
	}
	if ints[colYear] != year {
		return domain.HourlyRecord{}, false, fmt.Errorf("row year %d does not match file year %d", ints[colYear], year)
	}

	hour, keep := hourIndex(year, time.Month(ints[colMonth]), ints[colDay], ints[colHour], expectedHours)
	if !keep {
		return domain.HourlyRecord{}, false, nil
	}

	values := make(map[domain.Field]float64, len(domain.TrackedFields))
	setScaled(values, domain.FieldDryBulbTemperature, cols[colAirTemp], 0.1)
	setScaled(values, domain.FieldDewPointTemperature, cols[colDewPoint], 0.1)
	// Tenths of hPa to Pa.
	setScaled(values, domain.FieldPressure, cols[colSeaLevelPressure], 10)
	setScaled(values, domain.FieldWindDirection, cols[colWindDirection], 1)
	setScaled(values, domain.FieldWindSpeed, cols[colWindSpeed], 0.1)

	return domain.HourlyRecord{Hour: hour, Values: values}, true, nil
}

// setScaled parses a raw column, skipping sentinels and garbage, and stores
// the scaled value. Unparseable values are treated as missing rather than
// failing the file; ISD archives contain occasional stray tokens.
func setScaled(values map[domain.Field]float64, field domain.Field, raw string, scale float64) {
	v, err := strconv.Atoi(raw)
	if err != nil || v == missingSentinel {
		return
	}
	values[field] = float64(v) * scale
}

// hourIndex maps a calendar timestamp to its slot on the expected hour grid.
// The second return is false for rows that fall off the grid: February 29th
// when a leap year is mapped onto 8760 hours.
func hourIndex(year int, month time.Month, day, hour, expectedHours int) (int, bool) {
	t := time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	idx := int(t.Sub(jan1) / time.Hour)

	if expectedHours == domain.HoursPerYear && domain.HoursInYear(year) == domain.HoursPerLeapYear {
		if month == time.February && day == 29 {
			return 0, false
		}
		if t.After(time.Date(year, time.February, 29, 0, 0, 0, 0, time.UTC)) {
			idx -= 24
		}
	}
	return idx, true
}
