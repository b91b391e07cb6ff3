// Package epw reads and writes EnergyPlus Weather files. A file is eight
// header lines followed by one comma-separated data row per hour. Only the
// five tracked meteorological columns are interpreted; every other column
// passes through untouched so a written file preserves the source's
// radiation, sky cover, and remaining fields verbatim.
package epw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// HeaderLines is the fixed number of metadata lines before hourly data.
const HeaderLines = 8

// Data row column positions for the fields this engine touches.
const (
	ColYear                = 0
	ColMonth               = 1
	ColDay                 = 2
	ColHour                = 3
	ColDryBulbTemperature  = 6
	ColDewPointTemperature = 7
	ColAtmosphericPressure = 9
	ColWindDirection       = 20
	ColWindSpeed           = 21

	minColumns = ColWindSpeed + 1
)

// fieldColumns maps each tracked field to its data row column.
var fieldColumns = map[domain.Field]int{
	domain.FieldDryBulbTemperature:  ColDryBulbTemperature,
	domain.FieldDewPointTemperature: ColDewPointTemperature,
	domain.FieldPressure:            ColAtmosphericPressure,
	domain.FieldWindDirection:       ColWindDirection,
	domain.FieldWindSpeed:           ColWindSpeed,
}

// fieldPrecision gives the decimal places used when writing each tracked
// field, matching the precision TMY3-derived files carry.
var fieldPrecision = map[domain.Field]int{
	domain.FieldDryBulbTemperature:  1,
	domain.FieldDewPointTemperature: 1,
	domain.FieldPressure:            0,
	domain.FieldWindDirection:       0,
	domain.FieldWindSpeed:           1,
}

// File is a parsed EnergyPlus Weather file.
type File struct {
	Header []string
	Rows   [][]string
}

// Read parses an EPW stream.
func Read(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	f := &File{}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(f.Header) < HeaderLines {
			f.Header = append(f.Header, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := strings.Split(line, ",")
		if len(row) < minColumns {
			return nil, fmt.Errorf("data row %d has %d columns, want at least %d", len(f.Rows)+1, len(row), minColumns)
		}
		f.Rows = append(f.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(f.Header) < HeaderLines {
		return nil, fmt.Errorf("file has %d header lines, want %d", len(f.Header), HeaderLines)
	}
	return f, nil
}

// ReadFile parses the EPW file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open epw file: %w", err)
	}
	defer f.Close()

	parsed, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return parsed, nil
}

// BaselineRecords converts the file's data rows into baseline records, one
// per hour in row order. The full row rides along so untouched columns
// survive a later rewrite.
func (f *File) BaselineRecords() ([]domain.BaselineRecord, error) {
	records := make([]domain.BaselineRecord, 0, len(f.Rows))
	for i, row := range f.Rows {
		fields := make(map[domain.Field]float64, len(fieldColumns))
		for field, col := range fieldColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d (%s): %w", i+1, col, field, err)
			}
			fields[field] = v
		}
		records = append(records, domain.BaselineRecord{
			Hour:   i,
			Fields: fields,
			Extra:  row,
		})
	}
	return records, nil
}

// Write renders merged records as an EPW file under the given header. Each
// row starts from the baseline's columns with the tracked fields and the
// year column replaced.
func Write(w io.Writer, header []string, merged []domain.MergedRecord, year int) error {
	bw := bufio.NewWriter(w)
	for _, line := range header {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	yearStr := strconv.Itoa(year)
	for i, rec := range merged {
		if len(rec.Extra) < minColumns {
			return fmt.Errorf("row %d carries %d columns, want at least %d", i+1, len(rec.Extra), minColumns)
		}
		row := make([]string, len(rec.Extra))
		copy(row, rec.Extra)
		row[ColYear] = yearStr
		for field, col := range fieldColumns {
			row[col] = strconv.FormatFloat(rec.Fields[field], 'f', fieldPrecision[field], 64)
		}
		if _, err := fmt.Fprintln(bw, strings.Join(row, ",")); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}
