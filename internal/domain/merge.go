package domain

import "fmt"

// BaselineRecord is one hour of the baseline TMY annual record set. Fields
// holds the five tracked variables extracted by the EPW adapter; Extra is the
// complete source row, opaque to the engine and passed through unchanged.
type BaselineRecord struct {
	Hour   int
	Fields map[Field]float64
	Extra  []string
}

// MergedRecord is one output hour: tracked fields from the repaired
// observation series, everything else carried from the baseline row.
type MergedRecord struct {
	Hour   int
	Fields map[Field]float64
	Extra  []string
}

// CalendarMismatchError reports that the baseline record set and the repaired
// dataset do not share the same hour grid. Like *MalformedSequenceError this
// is a data-integrity failure, not a quality rejection.
type CalendarMismatchError struct {
	StationID string
	Year      int
	Detail    string
}

func (e *CalendarMismatchError) Error() string {
	return fmt.Sprintf("calendar mismatch for station %s year %d: %s", e.StationID, e.Year, e.Detail)
}

// Merge substitutes the five repaired fields into the baseline annual record
// set hour by hour. The baseline must cover exactly the repaired dataset's
// hour grid; any disagreement in length or indexing fails with a
// *CalendarMismatchError.
func Merge(repaired RepairedDataset, baseline []BaselineRecord) ([]MergedRecord, error) {
	if len(baseline) != repaired.Hours {
		return nil, &CalendarMismatchError{
			StationID: repaired.StationID,
			Year:      repaired.Year,
			Detail:    fmt.Sprintf("baseline has %d rows, repaired dataset has %d hours", len(baseline), repaired.Hours),
		}
	}
	for _, field := range TrackedFields {
		if len(repaired.Values[field]) != repaired.Hours {
			return nil, &CalendarMismatchError{
				StationID: repaired.StationID,
				Year:      repaired.Year,
				Detail:    fmt.Sprintf("repaired series for %s has %d values, want %d", field, len(repaired.Values[field]), repaired.Hours),
			}
		}
	}

	merged := make([]MergedRecord, len(baseline))
	for i, base := range baseline {
		if base.Hour != i {
			return nil, &CalendarMismatchError{
				StationID: repaired.StationID,
				Year:      repaired.Year,
				Detail:    fmt.Sprintf("baseline row %d has hour index %d", i, base.Hour),
			}
		}
		fields := make(map[Field]float64, len(TrackedFields))
		for _, f := range TrackedFields {
			fields[f] = repaired.Value(f, i)
		}
		merged[i] = MergedRecord{Hour: i, Fields: fields, Extra: base.Extra}
	}
	return merged, nil
}
