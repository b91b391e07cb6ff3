package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/amy-epw-gen/internal/adapter/report"
	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

func TestEntryID(t *testing.T) {
	assert.Equal(t, "725300-94846-2018.gz", entryID("/data/isd", "/data/isd/725300-94846-2018.gz"))
	// Files found in subdirectories keep their relative location, so the
	// generate command can resolve them against the same root.
	assert.Equal(t, filepath.Join("2018", "725300-94846-2018.gz"),
		entryID("/data/isd", "/data/isd/2018/725300-94846-2018.gz"))
	// A path that cannot be made relative passes through unchanged.
	assert.Equal(t, "/elsewhere/725300-94846-2018.gz", entryID("relative-root", "/elsewhere/725300-94846-2018.gz"))
}

func TestWriteReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "analysis")
	set := domain.AnalysisSet{
		MissingTotalHigh: []domain.AnalysisEntry{
			{ID: "690150-93121-2018.gz", Report: domain.CompletenessReport{TotalMissingRows: 944, MaxConsecutiveMissingRows: 112}},
		},
		MissingConsecHigh: []domain.AnalysisEntry{
			{ID: "690150-93121-2018.gz", Report: domain.CompletenessReport{TotalMissingRows: 944, MaxConsecutiveMissingRows: 112}},
		},
		Accepted: []domain.AnalysisEntry{
			{ID: "725300-94846-2018.gz", Report: domain.CompletenessReport{TotalMissingRows: 12, MaxConsecutiveMissingRows: 3}},
		},
	}

	require.NoError(t, writeReports(dir, set))

	total, err := os.ReadFile(filepath.Join(dir, report.MissingTotalFileName))
	require.NoError(t, err)
	assert.Contains(t, string(total), "690150-93121-2018.gz,944,112")

	consec, err := os.ReadFile(filepath.Join(dir, report.MissingConsecutiveFileName))
	require.NoError(t, err)
	assert.Contains(t, string(consec), "690150-93121-2018.gz,944,112")

	accepted, err := report.ReadAcceptedList(filepath.Join(dir, report.AcceptedFileName))
	require.NoError(t, err)
	assert.Equal(t, []string{"725300-94846-2018.gz"}, accepted)

	// A file can appear in both rejection reports but never in the accepted list.
	assert.False(t, strings.Contains(string(total), "725300-94846"))
}
