// Command validate checks generated weather files for structural and
// physical integrity: header shape, a full hourly calendar, parseable
// tracked fields, and plausible value ranges. It is meant as a final gate
// before handing a batch of files to a simulation run.
//
// Usage:
//
//	go run ./cmd/validate out/*.amy.epw
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/amy-epw-gen/internal/adapter/epw"
	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

func main() {
	flag.Parse()
	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: validate <epw file>...")
		os.Exit(2)
	}

	if code := run(paths); code != 0 {
		os.Exit(code)
	}
}

func run(paths []string) int {
	fmt.Println("=== Weather File Integrity Validation ===")
	fmt.Println()

	allPassed := true
	for _, path := range paths {
		errs := validateFile(path)
		status := "\033[32mPASS\033[0m"
		if len(errs) > 0 {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(errs))
			allPassed = false
		}
		fmt.Printf("  %-60s %s\n", path, status)
		for i, e := range errs {
			if i == 10 {
				fmt.Printf("    ... and %d more\n", len(errs)-10)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("validation failed")
		return 1
	}
	fmt.Printf("%d file(s) valid\n", len(paths))
	return 0
}

// fieldRange bounds a tracked field's physically plausible values.
type fieldRange struct{ min, max float64 }

var fieldRanges = map[domain.Field]fieldRange{
	domain.FieldDryBulbTemperature:  {min: -90, max: 60},
	domain.FieldDewPointTemperature: {min: -90, max: 40},
	domain.FieldPressure:            {min: 30000, max: 120000},
	domain.FieldWindDirection:       {min: 0, max: 360},
	domain.FieldWindSpeed:           {min: 0, max: 120},
}

func validateFile(path string) []string {
	f, err := epw.ReadFile(path)
	if err != nil {
		return []string{err.Error()}
	}

	var errs []string
	if len(f.Rows) != domain.HoursPerYear && len(f.Rows) != domain.HoursPerLeapYear {
		errs = append(errs, fmt.Sprintf("has %d data rows, want %d or %d",
			len(f.Rows), domain.HoursPerYear, domain.HoursPerLeapYear))
	}

	records, err := f.BaselineRecords()
	if err != nil {
		return append(errs, err.Error())
	}

	errs = append(errs, checkCalendar(f)...)
	for _, rec := range records {
		for field, r := range fieldRanges {
			v := rec.Fields[field]
			if v < r.min || v > r.max {
				errs = append(errs, fmt.Sprintf("row %d: %s value %g outside [%g, %g]",
					rec.Hour+1, field, v, r.min, r.max))
			}
		}
	}
	return errs
}

// checkCalendar verifies the month/day/hour columns advance hourly from
// January 1st, hour 1. EPW hours are 1-24.
func checkCalendar(f *epw.File) []string {
	if len(f.Rows) == 0 {
		return nil
	}
	year, err := strconv.Atoi(f.Rows[0][epw.ColYear])
	if err != nil {
		return []string{fmt.Sprintf("row 1: unparseable year %q", f.Rows[0][epw.ColYear])}
	}
	// A leap-year file written on the common 8760-hour grid carries the
	// baseline's non-leap calendar; walk a non-leap year in that case.
	calYear := year
	if len(f.Rows) == domain.HoursPerYear && domain.HoursInYear(year) == domain.HoursPerLeapYear {
		calYear = 1999
	}

	var errs []string
	for i, row := range f.Rows {
		want := time.Date(calYear, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
		month, errM := strconv.Atoi(row[epw.ColMonth])
		day, errD := strconv.Atoi(row[epw.ColDay])
		hour, errH := strconv.Atoi(row[epw.ColHour])
		if errM != nil || errD != nil || errH != nil {
			errs = append(errs, fmt.Sprintf("row %d: unparseable timestamp columns", i+1))
			continue
		}
		if month != int(want.Month()) || day != want.Day() || hour != want.Hour()+1 {
			errs = append(errs, fmt.Sprintf("row %d: timestamp %02d/%02d hour %d, want %02d/%02d hour %d",
				i+1, month, day, hour, int(want.Month()), want.Day(), want.Hour()+1))
		}
	}
	return errs
}
