package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgblast/internal/config"
	"pgblast/internal/metrics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id string, ts time.Time, tps float64) RunRecord {
	return RunRecord{
		ID:        id,
		Timestamp: ts,
		Config:    config.Config{Prefix: "pgbench", Scale: 10}.WithDefaults(),
		Report:    metrics.AggregateReport{RunID: id, TPS: tps, TotalTransactions: 100},
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(testRecord("run-a", base, 100)))
	require.NoError(t, store.Save(testRecord("run-b", base.Add(time.Minute), 200)))
	require.NoError(t, store.Save(testRecord("run-c", base.Add(2*time.Minute), 300)))

	records, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run-c", records[0].ID)
	assert.Equal(t, "run-b", records[1].ID)
	assert.Equal(t, "run-a", records[2].ID)
}

func TestListHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.Save(testRecord(id, base.Add(time.Duration(i)*time.Minute), 100)))
	}

	records, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-c", records[0].ID)
}

func TestListEmpty(t *testing.T) {
	store := openTestStore(t)
	records, err := store.List(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGet(t *testing.T) {
	store := openTestStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(testRecord("run-a", ts, 150)))

	rec, err := store.Get("run-a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 150.0, rec.Report.TPS)
	assert.True(t, rec.Timestamp.Equal(ts))

	absent, err := store.Get("run-z")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestSaveRoundTripsReport(t *testing.T) {
	store := openTestStore(t)
	rec := testRecord("run-a", time.Now().UTC(), 42)
	rec.Report.Latency = metrics.LatencySummary{AvgMs: 5, P99Ms: 12.5}
	rec.Report.MissingWorkers = 1
	require.NoError(t, store.Save(rec))

	got, err := store.Get("run-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Report.Latency, got.Report.Latency)
	assert.Equal(t, 1, got.Report.MissingWorkers)
	assert.Equal(t, rec.Config.Prefix, got.Config.Prefix)
}
