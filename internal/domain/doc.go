// Package domain implements the quality gating and gap filling engine that
// turns NOAA ISD-Lite station observations into complete annual series
// suitable for AMY (actual meteorological year) EPW generation.
//
// # Data Source
//
// Hourly observations come from NOAA ISD-Lite station-year files, one file
// per (WMO index, year) pair. The adapter layer parses those files into
// [HourlyRecord] sequences before anything in this package runs; inside the
// engine a missing observation is simply an absent map entry, never a numeric
// sentinel such as ISD-Lite's -9999.
//
// # Tracked Fields
//
// Exactly five variables are repaired and substituted into the baseline TMY
// (typical meteorological year) EPW file:
//
//	dry-bulb temperature   °C
//	dew-point temperature  °C
//	atmospheric pressure   Pa
//	wind direction         degrees
//	wind speed             m/s
//
// All other EPW columns pass through from the baseline untouched.
//
// # Quality Gating
//
// A station-year is gated on row completeness before any filling happens:
//
//	total missing rows        > MaxMissingRows            → rejected
//	max consecutive missing   > MaxConsecutiveMissingRows → rejected
//
// The two checks are independent; a file can fail both. [Partition] buckets a
// batch of completeness reports into the two reject lists plus the accepted
// list. The accepted list is user-editable intermediate state: the fill stage
// consumes whatever list it is handed and never re-derives acceptance.
//
// # Gap Repair Policy
//
// Within an accepted station-year each tracked field is repaired
// independently. A gap is a maximal run of hours with no value for the field,
// whether the whole row is absent or just that field. Gaps are classified by
// length against the run's thresholds:
//
//	length ≤ MaxRecordsToInterpolate   linear interpolation between the
//	                                   values bracketing the gap
//	length ≤ MaxRecordsToImpute        each hour filled with the mean of the
//	                                   field's value two weeks (336 h) before
//	                                   and two weeks after
//	length > MaxRecordsToImpute        the whole file is rejected
//
// Interpolation needs both bracketing values, so a short gap touching the
// first or last hour of the year is unresolvable. Imputation references may
// themselves be fill results from an earlier pass; gaps are resolved as an
// iterative fixed point, and any gap still unresolved when no more progress
// can be made (references off the calendar, or circular dependencies between
// gaps) rejects the file. Filling is all-or-nothing per file: a repaired
// dataset has a value for every tracked field at every hour, or the file
// produces no output at all.
package domain
