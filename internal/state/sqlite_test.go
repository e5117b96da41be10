package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/mstools/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(context.Background(), path))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mstools", "journal.db")
	store := openTestStore(t, path)

	assert.FileExists(t, path)
	version, err := store.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, MemoryPath)

	params := map[string]any{"antennas": []string{"EF"}}
	run, err := store.CreateRun(ctx, "polswap", "n24l1.ms", params, false)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.JSONEq(t, `{"antennas":["EF"]}`, got.Params)
	assert.Nil(t, got.CompletedAt)
	assert.Zero(t, got.Duration())

	require.NoError(t, store.CompleteRun(ctx, run.ID, Counts{Rows: 120, Selected: 60, Written: 60}, nil))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, 120, got.Rows)
	assert.Equal(t, 60, got.Selected)
	assert.Equal(t, 60, got.Written)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
	assert.Empty(t, got.Error)
}

func TestSQLiteStore_FailedRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, MemoryPath)

	run, err := store.CreateRun(ctx, "copy_pol", "n24l1.ms", nil, true)
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, run.ID, Counts{}, errors.New("unknown polarization X")))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.True(t, got.DryRun)
	assert.Equal(t, "unknown polarization X", got.Error)
}

func TestSQLiteStore_Logs(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	store := NewSQLiteStore(logger)
	require.NoError(t, store.Open(context.Background(), MemoryPath))
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun(context.Background(), "invert_subband", "n24l1.ms", nil, false)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "opened run journal")
	assert.Contains(t, logs.String(), "id="+run.ID)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, MemoryPath)

	_, err := store.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = store.CompleteRun(ctx, "missing", Counts{}, nil)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, MemoryPath)

	for _, r := range []struct{ transform, dataset string }{
		{"polswap", "a.ms"},
		{"invert_subband", "b.ms"},
		{"flag_weights", "a.ms"},
	} {
		_, err := store.CreateRun(ctx, r.transform, r.dataset, nil, false)
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "flag_weights", runs[0].Transform, "newest first")

	runs, err = store.ListRuns(ctx, "a.ms", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "a.ms", r.Dataset)
	}

	runs, err = store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "polswap", "a.ms", nil, false)
	assert.Error(t, err)
	_, err = store.ListRuns(ctx, "", 10)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO runs").WillReturnError(errors.New("disk I/O error"))
	_, err = store.CreateRun(ctx, "polswap", "a.ms", nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create run")

	mock.ExpectExec("UPDATE runs SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.CompleteRun(ctx, "gone", Counts{}, nil)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	mock.ExpectQuery("SELECT (.+) FROM runs").WillReturnError(errors.New("database is locked"))
	_, err = store.ListRuns(ctx, "", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list runs")

	assert.NoError(t, mock.ExpectationsWereMet())
}
