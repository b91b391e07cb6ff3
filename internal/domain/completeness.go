package domain

import "time"

// CompletenessReport summarizes how many hourly rows a station-year file is
// missing. It feeds the batch quality gate; see [Partition].
type CompletenessReport struct {
	StationID                 string
	Year                      int
	TotalMissingRows          int
	MaxConsecutiveMissingRows int
	GeneratedAt               time.Time
}

// ExceedsTotal reports whether the file misses more total rows than the
// threshold allows.
func (r CompletenessReport) ExceedsTotal(t Thresholds) bool {
	return r.TotalMissingRows > t.MaxMissingRows
}

// ExceedsConsecutive reports whether the file's longest run of missing rows
// exceeds the threshold.
func (r CompletenessReport) ExceedsConsecutive(t Thresholds) bool {
	return r.MaxConsecutiveMissingRows > t.MaxConsecutiveMissingRows
}

// Acceptable reports whether the file passes both row-level gates. The two
// reject conditions are independent; a file can fail both at once.
func (r CompletenessReport) Acceptable(t Thresholds) bool {
	return !r.ExceedsTotal(t) && !r.ExceedsConsecutive(t)
}

// AnalyzeCompleteness scans the expected hour range 0..expectedHours-1 and
// counts hours with no corresponding record, tracking the longest consecutive
// run. It is a pure function of its input. Duplicate or out-of-order records
// are an upstream contract violation and return a *MalformedSequenceError.
func AnalyzeCompleteness(ds StationYearDataset, expectedHours int) (CompletenessReport, error) {
	if err := ds.validate(expectedHours); err != nil {
		return CompletenessReport{}, err
	}

	report := CompletenessReport{
		StationID:   ds.StationID,
		Year:        ds.Year,
		GeneratedAt: clock.Now(),
	}

	next := 0 // index into ds.Records
	streak := 0
	for hour := 0; hour < expectedHours; hour++ {
		if next < len(ds.Records) && ds.Records[next].Hour == hour {
			next++
			streak = 0
			continue
		}
		report.TotalMissingRows++
		streak++
		if streak > report.MaxConsecutiveMissingRows {
			report.MaxConsecutiveMissingRows = streak
		}
	}

	return report, nil
}
