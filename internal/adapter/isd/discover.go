package isd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// fileNamePattern matches ISD-Lite station-year file names:
// <WMO>-<WBAN>-<year> with an optional .gz suffix.
var fileNamePattern = regexp.MustCompile(`^(\d{6})-(\d{5})-(\d{4})(\.gz)?$`)

// StationFile locates one station-year observation file on disk.
type StationFile struct {
	Path string
	WMO  string
	WBAN string
	Year int
}

// StationID returns the composite <WMO>-<WBAN> station identifier.
func (f StationFile) StationID() string {
	return f.WMO + "-" + f.WBAN
}

// ID returns the <WMO>-<WBAN>-<year> station-year identifier.
func (f StationFile) ID() string {
	return fmt.Sprintf("%s-%d", f.StationID(), f.Year)
}

// ParseName interprets an observation file path whose base name follows the
// station-year convention.
func ParseName(path string) (StationFile, error) {
	m := fileNamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return StationFile{}, fmt.Errorf("%s is not a <WMO>-<WBAN>-<year> observation file name", path)
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return StationFile{}, err
	}
	return StationFile{Path: path, WMO: m[1], WBAN: m[2], Year: year}, nil
}

// Discover walks root and returns every file whose name matches the ISD-Lite
// station-year convention, sorted by station then year. Files with other
// names are ignored so the input directory can hold documentation or
// checksums alongside the data.
func Discover(root string) ([]StationFile, error) {
	var files []StationFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := fileNamePattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		year, err := strconv.Atoi(m[3])
		if err != nil {
			return err
		}
		files = append(files, StationFile{Path: path, WMO: m[1], WBAN: m[2], Year: year})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover observation files in %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].StationID() != files[j].StationID() {
			return files[i].StationID() < files[j].StationID()
		}
		return files[i].Year < files[j].Year
	})
	return files, nil
}

// FindForYears narrows discovered files to the requested years, and to the
// requested WMO indices when any are given.
func FindForYears(files []StationFile, years []int, wmoIndices []string) []StationFile {
	wantYear := make(map[int]bool, len(years))
	for _, y := range years {
		wantYear[y] = true
	}
	wantWMO := make(map[string]bool, len(wmoIndices))
	for _, w := range wmoIndices {
		wantWMO[strings.TrimSpace(w)] = true
	}

	var out []StationFile
	for _, f := range files {
		if len(wantYear) > 0 && !wantYear[f.Year] {
			continue
		}
		if len(wantWMO) > 0 && !wantWMO[f.WMO] {
			continue
		}
		out = append(out, f)
	}
	return out
}
