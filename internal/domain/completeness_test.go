package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStation = "725300-94846"

// makeDataset builds a station-year with records at exactly the given hours.
// Every record carries a dry-bulb value so field-level gaps mirror row gaps.
func makeDataset(t *testing.T, hours []int) StationYearDataset {
	t.Helper()
	records := make([]HourlyRecord, len(hours))
	for i, h := range hours {
		records[i] = HourlyRecord{Hour: h, Values: map[Field]float64{FieldDryBulbTemperature: 10.0}}
	}
	return StationYearDataset{StationID: testStation, Year: 2018, Records: records}
}

// hourRange returns hours from..to inclusive.
func hourRange(from, to int) []int {
	hours := make([]int, 0, to-from+1)
	for h := from; h <= to; h++ {
		hours = append(hours, h)
	}
	return hours
}

// without removes the given hours from a full range.
func without(hours []int, drop ...int) []int {
	dropSet := make(map[int]bool, len(drop))
	for _, h := range drop {
		dropSet[h] = true
	}
	out := hours[:0:0]
	for _, h := range hours {
		if !dropSet[h] {
			out = append(out, h)
		}
	}
	return out
}

func TestAnalyzeCompleteness_FullYear(t *testing.T) {
	ds := makeDataset(t, hourRange(0, HoursPerYear-1))

	report, err := AnalyzeCompleteness(ds, HoursPerYear)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalMissingRows)
	assert.Equal(t, 0, report.MaxConsecutiveMissingRows)
	assert.Equal(t, testStation, report.StationID)
	assert.Equal(t, 2018, report.Year)
}

func TestAnalyzeCompleteness_CountsRunsAndTotals(t *testing.T) {
	tests := []struct {
		name      string
		drop      []int
		wantTotal int
		wantRun   int
	}{
		{
			name:      "single missing hour",
			drop:      []int{100},
			wantTotal: 1,
			wantRun:   1,
		},
		{
			name:      "two separate gaps take the longer run",
			drop:      []int{10, 11, 12, 500, 501},
			wantTotal: 5,
			wantRun:   3,
		},
		{
			name:      "gap at the start of the year",
			drop:      hourRange(0, 5),
			wantTotal: 6,
			wantRun:   6,
		},
		{
			name:      "gap at the end of the year",
			drop:      hourRange(HoursPerYear-4, HoursPerYear-1),
			wantTotal: 4,
			wantRun:   4,
		},
		{
			name:      "adjacent gaps merge into one run",
			drop:      append(hourRange(200, 210), hourRange(211, 220)...),
			wantTotal: 21,
			wantRun:   21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := makeDataset(t, without(hourRange(0, HoursPerYear-1), tt.drop...))

			report, err := AnalyzeCompleteness(ds, HoursPerYear)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, report.TotalMissingRows)
			assert.Equal(t, tt.wantRun, report.MaxConsecutiveMissingRows)
		})
	}
}

func TestAnalyzeCompleteness_EmptyDataset(t *testing.T) {
	ds := makeDataset(t, nil)

	report, err := AnalyzeCompleteness(ds, HoursPerYear)
	require.NoError(t, err)
	assert.Equal(t, HoursPerYear, report.TotalMissingRows)
	assert.Equal(t, HoursPerYear, report.MaxConsecutiveMissingRows)
}

func TestAnalyzeCompleteness_LeapYearGrid(t *testing.T) {
	ds := makeDataset(t, hourRange(0, HoursPerLeapYear-1))
	ds.Year = 2020

	report, err := AnalyzeCompleteness(ds, HoursPerLeapYear)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalMissingRows)
}

func TestAnalyzeCompleteness_MalformedSequence(t *testing.T) {
	tests := []struct {
		name  string
		hours []int
	}{
		{name: "duplicate hour", hours: []int{0, 1, 1, 2}},
		{name: "out of order", hours: []int{0, 2, 1}},
		{name: "hour beyond year", hours: []int{0, HoursPerYear}},
		{name: "negative hour", hours: []int{-1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := makeDataset(t, tt.hours)

			_, err := AnalyzeCompleteness(ds, HoursPerYear)
			var malformed *MalformedSequenceError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, testStation, malformed.StationID)
		})
	}
}

func TestAnalyzeCompleteness_StampsReportTime(t *testing.T) {
	frozen := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	ds := makeDataset(t, hourRange(0, HoursPerYear-1))
	report, err := AnalyzeCompleteness(ds, HoursPerYear)
	require.NoError(t, err)
	assert.Equal(t, frozen, report.GeneratedAt)
}

func TestNewStationYearDataset_Validates(t *testing.T) {
	records := []HourlyRecord{{Hour: 5}, {Hour: 3}}
	_, err := NewStationYearDataset(testStation, 2018, records, HoursPerYear)
	var malformed *MalformedSequenceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 3, malformed.Hour)

	ds, err := NewStationYearDataset(testStation, 2018, []HourlyRecord{{Hour: 3}, {Hour: 5}}, HoursPerYear)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 2)
}

func TestHoursInYear(t *testing.T) {
	assert.Equal(t, HoursPerYear, HoursInYear(2018))
	assert.Equal(t, HoursPerLeapYear, HoursInYear(2020))
	assert.Equal(t, HoursPerYear, HoursInYear(1900)) // century, not leap
	assert.Equal(t, HoursPerLeapYear, HoursInYear(2000))
}
