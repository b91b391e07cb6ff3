package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/amy-epw-gen/internal/domain"
	"github.com/couchcryptid/amy-epw-gen/internal/observability"
	"github.com/couchcryptid/amy-epw-gen/internal/pipeline"
)

// --- fixtures ---

const (
	testWMO  = "725300"
	testWBAN = "94846"
	testYear = 2018
)

func testItem() pipeline.Item {
	return pipeline.Item{
		Path: "/data/725300-94846-2018.gz",
		WMO:  testWMO,
		WBAN: testWBAN,
		Year: testYear,
	}
}

// makeDataset builds a station-year with every tracked field set to 10.0,
// minus the listed missing rows and the listed per-field gaps.
func makeDataset(t *testing.T, missingRows map[int]bool, fieldGaps map[domain.Field][2]int) domain.StationYearDataset {
	t.Helper()
	records := make([]domain.HourlyRecord, 0, domain.HoursPerYear)
	for h := 0; h < domain.HoursPerYear; h++ {
		if missingRows[h] {
			continue
		}
		values := make(map[domain.Field]float64, len(domain.TrackedFields))
		for _, f := range domain.TrackedFields {
			if gap, ok := fieldGaps[f]; ok && h >= gap[0] && h < gap[0]+gap[1] {
				continue
			}
			values[f] = 10.0
		}
		records = append(records, domain.HourlyRecord{Hour: h, Values: values})
	}
	ds, err := domain.NewStationYearDataset(testWMO+"-"+testWBAN, testYear, records, domain.HoursPerYear)
	require.NoError(t, err)
	return ds
}

func makeBaseline(hours int) []domain.BaselineRecord {
	records := make([]domain.BaselineRecord, hours)
	for h := range records {
		fields := make(map[domain.Field]float64, len(domain.TrackedFields))
		for _, f := range domain.TrackedFields {
			fields[f] = 1.0
		}
		records[h] = domain.BaselineRecord{Hour: h, Fields: fields, Extra: []string{"1999"}}
	}
	return records
}

// --- mocks ---

type mockObservations struct {
	mu       sync.Mutex
	datasets map[string]domain.StationYearDataset
	err      error
}

func (m *mockObservations) Load(_ context.Context, path, stationID string, year, _ int) (domain.StationYearDataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.StationYearDataset{}, m.err
	}
	ds, ok := m.datasets[path]
	if !ok {
		return domain.StationYearDataset{}, fmt.Errorf("no dataset for %s", path)
	}
	return ds, nil
}

type mockBaselines struct {
	records []domain.BaselineRecord
	err     error
}

func (m *mockBaselines) BaselineRecords(_ context.Context, _ string) ([]domain.BaselineRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockOutput struct {
	mu     sync.Mutex
	merged map[string][]domain.MergedRecord
	err    error
}

func (m *mockOutput) Write(_ context.Context, wmo, wban string, year int, merged []domain.MergedRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	id := fmt.Sprintf("%s-%s-%d", wmo, wban, year)
	if m.merged == nil {
		m.merged = make(map[string][]domain.MergedRecord)
	}
	m.merged[id] = merged
	return "/out/" + id + ".amy.epw", nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published [][]domain.Outcome
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, outcomes []domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, outcomes)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBatch(obs *mockObservations, base *mockBaselines, out *mockOutput, pub pipeline.OutcomePublisher, opts pipeline.Options) *pipeline.Batch {
	if opts.Thresholds == (domain.Thresholds{}) {
		opts.Thresholds = domain.DefaultThresholds()
	}
	return pipeline.New(obs, base, out, pub, testLogger(), observability.NewMetricsForTesting(), opts)
}

// --- tests ---

func TestBatch_Run_HappyPath(t *testing.T) {
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, nil, nil),
	}}
	base := &mockBaselines{records: makeBaseline(domain.HoursPerYear)}
	out := &mockOutput{}
	pub := &mockPublisher{}

	b := newBatch(obs, base, out, pub, pipeline.Options{})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Accepted)
	assert.Equal(t, "725300-94846", outcomes[0].StationID)
	assert.Equal(t, "/out/725300-94846-2018.amy.epw", outcomes[0].OutputPath)
	assert.Nil(t, outcomes[0].Reason)

	merged := out.merged["725300-94846-2018"]
	require.Len(t, merged, domain.HoursPerYear)
	// Observed values replace the baseline's.
	assert.InDelta(t, 10.0, merged[0].Fields[domain.FieldDryBulbTemperature], 1e-9)
	assert.Equal(t, []string{"1999"}, merged[0].Extra)

	require.Len(t, pub.published, 1)
	assert.Len(t, pub.published[0], 1)
}

func TestBatch_Run_RejectsTooManyMissingRows(t *testing.T) {
	// Six scattered missing rows against a limit of five.
	missing := map[int]bool{100: true, 300: true, 500: true, 700: true, 900: true, 1100: true}
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, missing, nil),
	}}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, nil, pipeline.Options{
		Thresholds: domain.Thresholds{
			MaxRecordsToInterpolate:   6,
			MaxRecordsToImpute:        48,
			MaxMissingRows:            5,
			MaxConsecutiveMissingRows: 48,
		},
	})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Accepted)
	require.NotNil(t, outcomes[0].Reason)
	assert.Equal(t, domain.ReasonTooManyMissingRows, outcomes[0].Reason.Kind)
	assert.Empty(t, outcomes[0].OutputPath)
}

func TestBatch_Run_RejectsTooManyConsecutiveMissingRows(t *testing.T) {
	missing := map[int]bool{2000: true, 2001: true, 2002: true}
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, missing, nil),
	}}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, nil, pipeline.Options{
		Thresholds: domain.Thresholds{
			MaxRecordsToInterpolate:   6,
			MaxRecordsToImpute:        48,
			MaxMissingRows:            700,
			MaxConsecutiveMissingRows: 2,
		},
	})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Reason)
	assert.Equal(t, domain.ReasonTooManyConsecutiveMissingRows, outcomes[0].Reason.Kind)
}

func TestBatch_Run_PreAcceptedSkipsCompletenessGate(t *testing.T) {
	// The same three-row gap that fails the gate above is honored when the
	// item arrives from a reviewed candidate list; the gap interpolates.
	missing := map[int]bool{2000: true, 2001: true, 2002: true}
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, missing, nil),
	}}
	out := &mockOutput{}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, out, nil, pipeline.Options{
		PreAccepted: true,
		Thresholds: domain.Thresholds{
			MaxRecordsToInterpolate:   6,
			MaxRecordsToImpute:        48,
			MaxMissingRows:            700,
			MaxConsecutiveMissingRows: 2,
		},
	})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Accepted)
	merged := out.merged["725300-94846-2018"]
	assert.InDelta(t, 10.0, merged[2001].Fields[domain.FieldWindSpeed], 1e-9)
}

func TestBatch_Run_RejectsOversizedFieldGap(t *testing.T) {
	// Rows are all present so the completeness gate passes, but one field
	// is absent for longer than any repair allows.
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, nil, map[domain.Field][2]int{
			domain.FieldWindSpeed: {3000, 49},
		}),
	}}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, nil, pipeline.Options{})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Accepted)
	require.NotNil(t, outcomes[0].Reason)
	assert.Equal(t, domain.ReasonOversizedGap, outcomes[0].Reason.Kind)
	assert.Equal(t, domain.FieldWindSpeed, outcomes[0].Reason.Field)
	assert.Equal(t, 49, outcomes[0].Reason.GapLength)
}

func TestBatch_Run_LoadFailureAbortsBatch(t *testing.T) {
	obs := &mockObservations{err: errors.New("disk gone")}

	b := newBatch(obs, &mockBaselines{}, &mockOutput{}, nil, pipeline.Options{})
	_, err := b.Run(context.Background(), []pipeline.Item{testItem()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "725300-94846-2018")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestBatch_Run_BaselineMismatchAbortsBatch(t *testing.T) {
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, nil, nil),
	}}
	base := &mockBaselines{records: makeBaseline(100)} // truncated baseline

	b := newBatch(obs, base, &mockOutput{}, nil, pipeline.Options{})
	_, err := b.Run(context.Background(), []pipeline.Item{item})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge")

	var mismatch *domain.CalendarMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestBatch_Run_PublisherFailureIsNotFatal(t *testing.T) {
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, nil, nil),
	}}
	pub := &mockPublisher{err: errors.New("broker down")}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, pub, pipeline.Options{})
	outcomes, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)
	assert.True(t, outcomes[0].Accepted)
}

func TestBatch_Run_OutcomesKeepInputOrder(t *testing.T) {
	items := make([]pipeline.Item, 4)
	datasets := make(map[string]domain.StationYearDataset, 4)
	for i := range items {
		items[i] = pipeline.Item{
			Path: fmt.Sprintf("/data/file-%d", i),
			WMO:  testWMO,
			WBAN: testWBAN,
			Year: 2015 + i,
		}
		datasets[items[i].Path] = makeDataset(t, nil, nil)
	}
	obs := &mockObservations{datasets: datasets}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, nil, pipeline.Options{
		Workers: 4,
		// Every fixture is on the common-year grid.
		ExpectedHours: func(int) int { return domain.HoursPerYear },
	})
	outcomes, err := b.Run(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, outcomes, 4)
	for i, o := range outcomes {
		assert.Equal(t, 2015+i, o.Year)
		assert.True(t, o.Accepted)
	}
}

func TestBatch_CheckReadiness(t *testing.T) {
	item := testItem()
	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		item.Path: makeDataset(t, nil, nil),
	}}

	b := newBatch(obs, &mockBaselines{records: makeBaseline(domain.HoursPerYear)}, &mockOutput{}, nil, pipeline.Options{})
	require.Error(t, b.CheckReadiness(context.Background()))
	done, total := b.Progress()
	assert.Zero(t, done)
	assert.Zero(t, total)

	_, err := b.Run(context.Background(), []pipeline.Item{item})
	require.NoError(t, err)
	assert.NoError(t, b.CheckReadiness(context.Background()))
	done, total = b.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)
}

func TestAnalyzer_Run(t *testing.T) {
	missing := map[int]bool{}
	for h := 4000; h < 4030; h++ {
		missing[h] = true
	}
	clean := testItem()
	gappy := pipeline.Item{Path: "/data/725300-94846-2017.gz", WMO: testWMO, WBAN: testWBAN, Year: 2017}

	obs := &mockObservations{datasets: map[string]domain.StationYearDataset{
		clean.Path: makeDataset(t, nil, nil),
		gappy.Path: makeDataset(t, missing, nil),
	}}

	a := pipeline.NewAnalyzer(obs, testLogger(), observability.NewMetricsForTesting(), pipeline.Options{
		Workers:       2,
		ExpectedHours: func(int) int { return domain.HoursPerYear },
	})
	results, err := a.Run(context.Background(), []pipeline.Item{clean, gappy})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Zero(t, results[0].Report.TotalMissingRows)
	assert.Equal(t, 30, results[1].Report.TotalMissingRows)
	assert.Equal(t, 30, results[1].Report.MaxConsecutiveMissingRows)
	assert.Equal(t, clean, results[0].Item)
}

func TestAnalyzer_Run_LoadFailure(t *testing.T) {
	obs := &mockObservations{err: errors.New("corrupt archive")}

	a := pipeline.NewAnalyzer(obs, testLogger(), observability.NewMetricsForTesting(), pipeline.Options{})
	_, err := a.Run(context.Background(), []pipeline.Item{testItem()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt archive")
}
