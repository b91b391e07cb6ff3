package domain

import "fmt"

// ImputeOffsetHours is the fixed lag/lead used by imputation: the value two
// weeks before and two weeks after the missing hour are averaged.
const ImputeOffsetHours = 336

// GapClass is the repair strategy chosen for a field gap by its length.
type GapClass int

const (
	GapInterpolate GapClass = iota
	GapImpute
	GapReject
)

// FieldGap is a maximal contiguous run of hours for which one tracked field
// has no value.
type FieldGap struct {
	Field  Field
	Start  int
	Length int
}

// End returns the first hour after the gap.
func (g FieldGap) End() int { return g.Start + g.Length }

// Classify picks the repair strategy for the gap under the run's thresholds.
func (g FieldGap) Classify(t Thresholds) GapClass {
	switch {
	case g.Length <= t.MaxRecordsToInterpolate:
		return GapInterpolate
	case g.Length <= t.MaxRecordsToImpute:
		return GapImpute
	default:
		return GapReject
	}
}

// ReasonKind enumerates why a station-year produced no output.
type ReasonKind string

const (
	ReasonOversizedGap                  ReasonKind = "oversized_gap"
	ReasonUnresolvableBoundaryGap       ReasonKind = "unresolvable_boundary_gap"
	ReasonTooManyMissingRows            ReasonKind = "too_many_missing_rows"
	ReasonTooManyConsecutiveMissingRows ReasonKind = "too_many_consecutive_missing_rows"
)

// RejectionReason describes why a file was rejected. Field and GapLength are
// set only for gap-level reasons.
type RejectionReason struct {
	Kind      ReasonKind `json:"kind"`
	Field     Field      `json:"field,omitempty"`
	GapLength int        `json:"gap_length,omitempty"`
}

func (r RejectionReason) String() string {
	switch r.Kind {
	case ReasonOversizedGap:
		return fmt.Sprintf("%s: %d consecutive missing values in %s", r.Kind, r.GapLength, r.Field)
	case ReasonUnresolvableBoundaryGap:
		return fmt.Sprintf("%s: unresolvable gap of %d in %s", r.Kind, r.GapLength, r.Field)
	default:
		return string(r.Kind)
	}
}

// RejectionError signals the expected per-file failure mode: the file cannot
// produce an output and the batch moves on. It is distinct from hard failures
// such as *MalformedSequenceError.
type RejectionError struct {
	StationID string
	Year      int
	Reason    RejectionReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("station %s year %d rejected: %s", e.StationID, e.Year, e.Reason)
}

// Fill repairs every tracked field of a row-gated station-year so that each
// has a value at all expectedHours hours. It returns a *RejectionError when
// any gap is unresolvable under the thresholds; in that case no partial
// output exists. Running Fill on an already fully-defined dataset returns the
// same values unchanged.
//
// Fields are processed independently. Within a field, interpolation gaps are
// filled first (their anchors are original observations by gap maximality),
// then imputation gaps are resolved as an iterative fixed point so that a
// reference hour may be a previously filled value but never one still
// pending in the same pass.
func Fill(ds StationYearDataset, t Thresholds, expectedHours int) (RepairedDataset, error) {
	if err := ds.validate(expectedHours); err != nil {
		return RepairedDataset{}, err
	}

	repaired := RepairedDataset{
		StationID: ds.StationID,
		Year:      ds.Year,
		Hours:     expectedHours,
		Values:    make(map[Field][]float64, len(TrackedFields)),
	}

	for _, field := range TrackedFields {
		values, present := fieldSeries(ds, field, expectedHours)
		if err := fillField(ds, field, values, present, t, &repaired.Stats); err != nil {
			return RepairedDataset{}, err
		}
		repaired.Values[field] = values
	}

	return repaired, nil
}

// fieldSeries builds the dense value/presence series for one field over the
// expected hour range. Row gaps and in-row absent fields both count as absent.
func fieldSeries(ds StationYearDataset, field Field, expectedHours int) ([]float64, []bool) {
	values := make([]float64, expectedHours)
	present := make([]bool, expectedHours)
	for _, rec := range ds.Records {
		if v, ok := rec.Value(field); ok {
			values[rec.Hour] = v
			present[rec.Hour] = true
		}
	}
	return values, present
}

// scanGaps decomposes the absent positions of a series into maximal
// contiguous runs, left to right.
func scanGaps(field Field, present []bool) []FieldGap {
	var gaps []FieldGap
	start := -1
	for i, ok := range present {
		switch {
		case !ok && start < 0:
			start = i
		case ok && start >= 0:
			gaps = append(gaps, FieldGap{Field: field, Start: start, Length: i - start})
			start = -1
		}
	}
	if start >= 0 {
		gaps = append(gaps, FieldGap{Field: field, Start: start, Length: len(present) - start})
	}
	return gaps
}

func fillField(ds StationYearDataset, field Field, values []float64, present []bool, t Thresholds, stats *FillStats) error {
	gaps := scanGaps(field, present)

	// Oversized gaps reject the file before any filling happens.
	for _, g := range gaps {
		if g.Classify(t) == GapReject {
			return reject(ds, ReasonOversizedGap, g)
		}
	}

	var imputeGaps []FieldGap
	for _, g := range gaps {
		switch g.Classify(t) {
		case GapInterpolate:
			if err := interpolateGap(ds, g, values, present); err != nil {
				return err
			}
			stats.ValuesInterpolated += g.Length
		case GapImpute:
			imputeGaps = append(imputeGaps, g)
		}
	}

	return resolveImputeGaps(ds, imputeGaps, values, present, stats)
}

// interpolateGap fills a short gap with exact linear spacing between the
// values immediately before and after it. Since gaps are maximal, both
// anchors are defined unless the gap touches an end of the year, which makes
// it unresolvable.
func interpolateGap(ds StationYearDataset, g FieldGap, values []float64, present []bool) error {
	if g.Start == 0 || g.End() == len(values) {
		return reject(ds, ReasonUnresolvableBoundaryGap, g)
	}

	vStart := values[g.Start-1]
	vEnd := values[g.End()]
	step := (vEnd - vStart) / float64(g.Length+1)
	for k := 1; k <= g.Length; k++ {
		values[g.Start+k-1] = vStart + step*float64(k)
		present[g.Start+k-1] = true
	}
	return nil
}

// resolveImputeGaps resolves imputation gaps in ascending start order as an
// iterative fixed point: a gap is filled only once every reference hour
// (±ImputeOffsetHours around each missing hour) holds a defined value, from
// original data or a gap resolved in an earlier iteration. When an iteration
// makes no progress, the remaining gaps are unresolvable — references off
// the calendar or circularly dependent — and the file is rejected.
func resolveImputeGaps(ds StationYearDataset, gaps []FieldGap, values []float64, present []bool, stats *FillStats) error {
	pending := gaps
	for len(pending) > 0 {
		var unresolved []FieldGap
		for _, g := range pending {
			if !imputable(g, present) {
				unresolved = append(unresolved, g)
				continue
			}
			for i := g.Start; i < g.End(); i++ {
				values[i] = (values[i-ImputeOffsetHours] + values[i+ImputeOffsetHours]) / 2
			}
			for i := g.Start; i < g.End(); i++ {
				present[i] = true
			}
			stats.ValuesImputed += g.Length
		}
		if len(unresolved) == len(pending) {
			return reject(ds, ReasonUnresolvableBoundaryGap, unresolved[0])
		}
		pending = unresolved
	}
	return nil
}

// imputable reports whether every hour of the gap has both its two-week
// references inside the year and currently defined.
func imputable(g FieldGap, present []bool) bool {
	for i := g.Start; i < g.End(); i++ {
		lag := i - ImputeOffsetHours
		lead := i + ImputeOffsetHours
		if lag < 0 || lead >= len(present) {
			return false
		}
		if !present[lag] || !present[lead] {
			return false
		}
	}
	return true
}

func reject(ds StationYearDataset, kind ReasonKind, g FieldGap) error {
	return &RejectionError{
		StationID: ds.StationID,
		Year:      ds.Year,
		Reason:    RejectionReason{Kind: kind, Field: g.Field, GapLength: g.Length},
	}
}
