package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewlab/brewlog-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReport() *model.Report {
	return &model.Report{
		TotalEntries:     10,
		EntriesProcessed: 3,
		TriggerBreakdown: map[model.TriggerKind]int{
			model.TriggerHashMismatch: 2,
			model.TriggerMissingHash:  1,
		},
		ProcessingTimeSeconds: 0.42,
		VersionApplied:        "1.2.0",
		EfficiencyRatio:       0.7,
		ProcessedBrewIDs:      []string{"b1", "b2", "b3"},
	}
}

func TestSQLite_RecordAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.RecordRun(ctx, "data/cups_of_coffee.csv", ModeSelective, sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "data/cups_of_coffee.csv", got.InputPath)
	assert.Equal(t, ModeSelective, got.Mode)
	require.NotNil(t, got.Report)
	assert.Equal(t, 3, got.Report.EntriesProcessed)
	assert.Equal(t, 2, got.Report.TriggerBreakdown[model.TriggerHashMismatch])
	assert.Equal(t, []string{"b1", "b2", "b3"}, got.Report.ProcessedBrewIDs)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordRun(ctx, "a.csv", ModeSelective, sampleReport())
	require.NoError(t, err)
	_, err = st.RecordRun(ctx, "b.csv", ModeFull, sampleReport())
	require.NoError(t, err)
	_, err = st.RecordRun(ctx, "c.csv", ModeSelective, sampleReport())
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	selective, err := st.ListRuns(ctx, RunFilter{Mode: ModeSelective})
	require.NoError(t, err)
	require.Len(t, selective, 2)
	for _, r := range selective {
		assert.Equal(t, ModeSelective, r.Mode)
	}
}

func TestSQLite_ListRuns_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.RecordRun(ctx, "a.csv", ModeSelective, sampleReport())
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_NilReport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.RecordRun(ctx, "a.csv", ModeFull, nil)
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Report)
}
