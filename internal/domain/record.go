package domain

import (
	"fmt"
	"time"
)

// Field names one of the five tracked weather variables.
type Field string

const (
	FieldDryBulbTemperature  Field = "dry_bulb_temperature"  // °C
	FieldDewPointTemperature Field = "dew_point_temperature" // °C
	FieldPressure            Field = "pressure"              // Pa
	FieldWindDirection       Field = "wind_direction"        // degrees
	FieldWindSpeed           Field = "wind_speed"            // m/s
)

// TrackedFields is the fixed set of fields repaired by the engine and
// substituted into the baseline. No other fields are gap-filled.
var TrackedFields = []Field{
	FieldDryBulbTemperature,
	FieldDewPointTemperature,
	FieldPressure,
	FieldWindDirection,
	FieldWindSpeed,
}

const (
	// HoursPerYear is the expected record count for a non-leap year.
	HoursPerYear = 8760
	// HoursPerLeapYear is the expected record count for a leap year.
	HoursPerLeapYear = 8784
)

// HoursInYear returns the number of hourly records a complete station-year
// file should hold for the given calendar year.
func HoursInYear(year int) int {
	if isLeapYear(year) {
		return HoursPerLeapYear
	}
	return HoursPerYear
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// HourlyRecord is one observation slot for a single hour of a calendar year.
// Hour counts from 0 at midnight January 1st. A field with no observation is
// simply absent from Values.
type HourlyRecord struct {
	Hour   int
	Values map[Field]float64
}

// Value returns the observed value for a field and whether it is present.
func (r HourlyRecord) Value(f Field) (float64, bool) {
	v, ok := r.Values[f]
	return v, ok
}

// StationYearDataset is the ordered hourly record sequence for one
// (station, year) pair. Records are strictly increasing in Hour with no
// duplicates; hours with no observation at all are absent from the slice.
type StationYearDataset struct {
	StationID string
	Year      int
	Records   []HourlyRecord
}

// MalformedSequenceError reports a contract violation by the upstream parser:
// duplicate, out-of-order, or out-of-range hour indices. It is a hard failure,
// not a data-quality rejection.
type MalformedSequenceError struct {
	StationID string
	Year      int
	Hour      int
	Detail    string
}

func (e *MalformedSequenceError) Error() string {
	return fmt.Sprintf("malformed sequence for station %s year %d at hour %d: %s",
		e.StationID, e.Year, e.Hour, e.Detail)
}

// NewStationYearDataset validates record ordering and hour range and returns
// the dataset. expectedHours bounds the valid hour range (8760, or 8784 for
// leap years).
func NewStationYearDataset(stationID string, year int, records []HourlyRecord, expectedHours int) (StationYearDataset, error) {
	ds := StationYearDataset{StationID: stationID, Year: year, Records: records}
	if err := ds.validate(expectedHours); err != nil {
		return StationYearDataset{}, err
	}
	return ds, nil
}

func (ds StationYearDataset) validate(expectedHours int) error {
	prev := -1
	for _, rec := range ds.Records {
		switch {
		case rec.Hour < 0 || rec.Hour >= expectedHours:
			return &MalformedSequenceError{
				StationID: ds.StationID, Year: ds.Year, Hour: rec.Hour,
				Detail: fmt.Sprintf("hour index outside 0..%d", expectedHours-1),
			}
		case rec.Hour == prev:
			return &MalformedSequenceError{
				StationID: ds.StationID, Year: ds.Year, Hour: rec.Hour,
				Detail: "duplicate hour index",
			}
		case rec.Hour < prev:
			return &MalformedSequenceError{
				StationID: ds.StationID, Year: ds.Year, Hour: rec.Hour,
				Detail: "hour index out of order",
			}
		}
		prev = rec.Hour
	}
	return nil
}

// FillStats counts how many missing values each repair method supplied.
type FillStats struct {
	ValuesInterpolated int
	ValuesImputed      int
}

// RepairedDataset is the output of a successful fill: one dense series per
// tracked field with a value at every hour.
type RepairedDataset struct {
	StationID string
	Year      int
	Hours     int
	Values    map[Field][]float64
	Stats     FillStats
}

// Value returns the repaired value for a field at the given hour.
func (d RepairedDataset) Value(f Field, hour int) float64 {
	return d.Values[f][hour]
}

// Outcome is the per-file result signal reported to the caller after the
// fill-and-merge stage. Rejections are expected and non-fatal to a batch.
type Outcome struct {
	StationID   string           `json:"station_id"`
	Year        int              `json:"year"`
	Accepted    bool             `json:"accepted"`
	Reason      *RejectionReason `json:"reason,omitempty"`
	OutputPath  string           `json:"output_path,omitempty"`
	ProcessedAt time.Time        `json:"processed_at"`
}
