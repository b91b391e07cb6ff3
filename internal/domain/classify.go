package domain

// AnalysisEntry pairs a file identifier with its completeness report.
type AnalysisEntry struct {
	ID     string
	Report CompletenessReport
}

// AnalysisSet is the three-way partition of a batch of analyzed files. The
// two reject lists are not mutually exclusive; Accepted holds every file in
// neither. The Accepted list is the contract surface handed to the fill
// stage, and users may edit it before that stage runs.
type AnalysisSet struct {
	MissingTotalHigh  []AnalysisEntry
	MissingConsecHigh []AnalysisEntry
	Accepted          []AnalysisEntry
}

// Partition buckets analyzed files against the row-level thresholds. A pure
// filter: no file is modified, and every input appears in at least one list.
func Partition(entries []AnalysisEntry, t Thresholds) AnalysisSet {
	var set AnalysisSet
	for _, e := range entries {
		rejected := false
		if e.Report.ExceedsTotal(t) {
			set.MissingTotalHigh = append(set.MissingTotalHigh, e)
			rejected = true
		}
		if e.Report.ExceedsConsecutive(t) {
			set.MissingConsecHigh = append(set.MissingConsecHigh, e)
			rejected = true
		}
		if !rejected {
			set.Accepted = append(set.Accepted, e)
		}
	}
	return set
}
