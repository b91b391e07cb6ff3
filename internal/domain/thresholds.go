package domain

import "fmt"

// Thresholds holds the four quality limits for one run. They are validated
// once up front and apply uniformly to every file and field in the run.
type Thresholds struct {
	// MaxRecordsToInterpolate is the longest field gap repaired by linear
	// interpolation between its bracketing values.
	MaxRecordsToInterpolate int

	// MaxRecordsToImpute is the longest field gap repaired at all. Gaps
	// longer than MaxRecordsToInterpolate but within this limit are filled
	// with the two-week lag/lead average.
	MaxRecordsToImpute int

	// MaxMissingRows is the most hourly rows a station-year file may lack
	// entirely and still be accepted.
	MaxMissingRows int

	// MaxConsecutiveMissingRows is the longest run of entirely absent rows a
	// station-year file may contain and still be accepted.
	MaxConsecutiveMissingRows int
}

// DefaultThresholds returns the standard limits used by the upstream NOAA
// analysis tooling.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRecordsToInterpolate:   6,
		MaxRecordsToImpute:        48,
		MaxMissingRows:            700,
		MaxConsecutiveMissingRows: 48,
	}
}

// Validate checks the run preconditions: all limits non-negative and the
// interpolation limit no larger than the imputation limit. An invalid
// configuration fails the whole run before any file is processed.
func (t Thresholds) Validate() error {
	switch {
	case t.MaxRecordsToInterpolate < 0:
		return fmt.Errorf("max records to interpolate must be non-negative, got %d", t.MaxRecordsToInterpolate)
	case t.MaxRecordsToImpute < 0:
		return fmt.Errorf("max records to impute must be non-negative, got %d", t.MaxRecordsToImpute)
	case t.MaxMissingRows < 0:
		return fmt.Errorf("max missing rows must be non-negative, got %d", t.MaxMissingRows)
	case t.MaxConsecutiveMissingRows < 0:
		return fmt.Errorf("max consecutive missing rows must be non-negative, got %d", t.MaxConsecutiveMissingRows)
	case t.MaxRecordsToInterpolate > t.MaxRecordsToImpute:
		return fmt.Errorf("max records to interpolate (%d) exceeds max records to impute (%d)",
			t.MaxRecordsToInterpolate, t.MaxRecordsToImpute)
	}
	return nil
}
