// Package report reads and writes the CSV artifacts that connect the
// analysis step to the generation step. The analysis step emits two
// rejection reports and a candidate list; a person can edit the candidate
// list before handing it to the generation step, which consumes it verbatim.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// Canonical artifact names within an analysis output directory.
const (
	MissingTotalFileName       = "missing_total_entries_high.csv"
	MissingConsecutiveFileName = "missing_consec_entries_high.csv"
	AcceptedFileName           = "files_to_convert.csv"
	ErrorsFileName             = "errors.csv"
)

// AnalysisRow is one observation file's completeness result as it appears
// in the rejection reports.
type AnalysisRow struct {
	File                      string
	TotalMissingRows          int
	MaxConsecutiveMissingRows int
}

// RowFromReport builds an AnalysisRow for the given observation file.
func RowFromReport(file string, r domain.CompletenessReport) AnalysisRow {
	return AnalysisRow{
		File:                      file,
		TotalMissingRows:          r.TotalMissingRows,
		MaxConsecutiveMissingRows: r.MaxConsecutiveMissingRows,
	}
}

// WriteRejections writes a rejection report CSV at path.
func WriteRejections(path string, rows []AnalysisRow) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"file", "total_rows_missing", "max_consec_rows_missing"}); err != nil {
			return err
		}
		for _, row := range rows {
			record := []string{
				row.File,
				strconv.Itoa(row.TotalMissingRows),
				strconv.Itoa(row.MaxConsecutiveMissingRows),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteAcceptedList writes the candidate list CSV at path, one observation
// file per row.
func WriteAcceptedList(path string, files []string) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"file"}); err != nil {
			return err
		}
		for _, f := range files {
			if err := w.Write([]string{f}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadAcceptedList reads back a candidate list, returning the file column
// in row order. The list is trusted as-is; editing it is the supported way
// to override the analysis gate.
func ReadAcceptedList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accepted list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse accepted list %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("accepted list %s is empty", path)
	}
	if records[0][0] != "file" {
		return nil, fmt.Errorf("accepted list %s: first column must be %q, got %q", path, "file", records[0][0])
	}

	files := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if rec[0] == "" {
			continue
		}
		files = append(files, rec[0])
	}
	return files, nil
}

// AppendError records a processing failure in the errors CSV, creating the
// file with a header on first use.
func AppendError(path, file, message string) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open errors file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{"file", "error"}); err != nil {
			return err
		}
	}
	if err := w.Write([]string{file, message}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeCSV(path string, fill func(*csv.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report %s: %w", path, closeErr)
		}
	}()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report %s: %w", path, err)
	}
	return nil
}
