package backtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResults() Results {
	return Results{
		TotalReturn:        0.02,
		TotalReturnDollars: 2_000,
		TotalTrades:        3,
		WinningTrades:      2,
		LosingTrades:       1,
		SharpeRatio:        1.5,
		MaxDrawdown:        0.0198,
		WinRate:            2.0 / 3.0,
		StartTime:          1_700_000_000_000,
		EndTime:            1_700_000_259_200_000,
	}
}

func sampleSnapshots() []Snapshot {
	return []Snapshot{
		{Timestamp: 1_700_000_000_000, Value: 100_000, Cash: 100_000},
		{Timestamp: 1_700_000_060_000, Value: 101_000, Cash: 99_000, UnrealizedPnL: 2_000},
		{Timestamp: 1_700_000_120_000, Value: 102_000, Cash: 102_000, RealizedPnL: 2_000},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveRun("sma_AAPL", []string{"AAPL"}, sampleResults(), sampleSnapshots(), 100_000)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := store.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "sma_AAPL", run.Label)
	assert.Equal(t, "AAPL", run.Symbols)
	assert.InDelta(t, 0.02, run.TotalReturn, 1e-9)
	assert.InDelta(t, 102_000, run.FinalValue, 1e-9)
	assert.Equal(t, 3, run.TotalTrades)
	assert.InDelta(t, 1.5, run.Results.SharpeRatio, 1e-9, "full results survive the JSON column")
}

func TestSnapshotsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveRun("run", []string{"AAPL"}, sampleResults(), sampleSnapshots(), 100_000)
	require.NoError(t, err)

	snaps, err := store.Snapshots(id)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshots(), snaps)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveRun("first", nil, sampleResults(), nil, 100_000)
	require.NoError(t, err)
	_, err = store.SaveRun("second", nil, sampleResults(), nil, 100_000)
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Label)
	assert.Equal(t, "first", runs[1].Label)
}

func TestGetRunMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetRun("nope")
	assert.Error(t, err)
}

func TestNewResultStoreEmptyPath(t *testing.T) {
	_, err := NewResultStore("  ")
	assert.Error(t, err)
}
