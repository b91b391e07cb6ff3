package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

func TestWriteRejections(t *testing.T) {
	path := filepath.Join(t.TempDir(), MissingTotalFileName)
	rows := []AnalysisRow{
		{File: "725300-94846-2018.gz", TotalMissingRows: 812, MaxConsecutiveMissingRows: 31},
		{File: "690150-93121-2018.gz", TotalMissingRows: 944, MaxConsecutiveMissingRows: 112},
	}

	require.NoError(t, WriteRejections(path, rows))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file,total_rows_missing,max_consec_rows_missing", lines[0])
	assert.Equal(t, "725300-94846-2018.gz,812,31", lines[1])
	assert.Equal(t, "690150-93121-2018.gz,944,112", lines[2])
}

func TestWriteRejections_EmptyStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), MissingConsecutiveFileName)
	require.NoError(t, WriteRejections(path, nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file,total_rows_missing,max_consec_rows_missing\n", string(content))
}

func TestAcceptedList_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), AcceptedFileName)
	files := []string{"725300-94846-2017.gz", "725300-94846-2018.gz"}

	require.NoError(t, WriteAcceptedList(path, files))

	got, err := ReadAcceptedList(path)
	require.NoError(t, err)
	assert.Equal(t, files, got)
}

func TestReadAcceptedList_EditedByHand(t *testing.T) {
	// The generation step trusts the list verbatim, including entries a
	// person added that the analysis step never emitted.
	path := filepath.Join(t.TempDir(), AcceptedFileName)
	content := "file\n725300-94846-2018.gz\n999999-99999-2018.gz\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadAcceptedList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"725300-94846-2018.gz", "999999-99999-2018.gz"}, got)
}

func TestReadAcceptedList_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadAcceptedList(filepath.Join(dir, "absent.csv"))
		require.Error(t, err)
	})

	t.Run("wrong header", func(t *testing.T) {
		path := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("path\nx\n"), 0o644))
		_, err := ReadAcceptedList(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "first column")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := ReadAcceptedList(path)
		require.Error(t, err)
	})
}

func TestAppendError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ErrorsFileName)

	require.NoError(t, AppendError(path, "725300-94846-2018.gz", "dry_bulb_temperature gap of 52 hours"))
	require.NoError(t, AppendError(path, "690150-93121-2018.gz", "baseline missing"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file,error", lines[0])
	assert.Contains(t, lines[1], "gap of 52 hours")
	assert.Contains(t, lines[2], "690150-93121-2018.gz")
}

func TestWriteCSV_CloseOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	// Rewriting the same path must succeed cleanly; a second close of an
	// already-closed file would surface as an error here.
	for i := 0; i < 2; i++ {
		err := writeCSV(path, func(w *csv.Writer) error {
			return w.Write([]string{"file"})
		})
		require.NoError(t, err)
	}
}

func TestWriteCSV_CreateFailure(t *testing.T) {
	// The target path is a directory, so os.Create fails.
	dir := t.TempDir()
	err := writeCSV(dir, func(w *csv.Writer) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create report")
}

func TestRowFromReport(t *testing.T) {
	r := domain.CompletenessReport{
		StationID:                 "725300-94846",
		Year:                      2018,
		TotalMissingRows:          120,
		MaxConsecutiveMissingRows: 12,
	}
	row := RowFromReport("725300-94846-2018.gz", r)
	assert.Equal(t, AnalysisRow{File: "725300-94846-2018.gz", TotalMissingRows: 120, MaxConsecutiveMissingRows: 12}, row)
}
