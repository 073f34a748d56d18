package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// sqliteRunSchema is RunSchema without the MySQL table options.
const sqliteRunSchema = `CREATE TABLE IF NOT EXISTS booking_runs (
	id          CHAR(36)     NOT NULL PRIMARY KEY,
	mode        VARCHAR(16)  NOT NULL,
	train       VARCHAR(64)  NOT NULL,
	travel_date CHAR(10)     NOT NULL,
	state       VARCHAR(32)  NOT NULL,
	error_kind  VARCHAR(64)  NOT NULL DEFAULT '',
	message     VARCHAR(512) NOT NULL DEFAULT '',
	started_at  DATETIME     NOT NULL,
	finished_at DATETIME     NULL
)`

func newRunRepo(t *testing.T) *RunRepo {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	r := &RunRepo{DB: db, Schema: sqliteRunSchema}
	require.NoError(t, r.Ensure(context.Background()))
	require.NoError(t, r.Ensure(context.Background()), "ensure is idempotent")
	return r
}

func runRecord(id string, started time.Time) model.RunRecord {
	return model.RunRecord{
		ID:         id,
		Mode:       model.ModeTatkal,
		Train:      "12951",
		TravelDate: "2025-03-10",
		State:      model.StateIdle,
		StartedAt:  started,
	}
}

func TestRunRepoCreateFinishGet(t *testing.T) {
	r := newRunRepo(t)
	ctx := context.Background()
	started := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, runRecord("run-1", started)))

	got, err := r.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeTatkal, got.Mode)
	assert.Equal(t, model.StateIdle, got.State)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Nil(t, got.FinishedAt)

	finished := started.Add(2 * time.Minute)
	require.NoError(t, r.Finish(ctx, "run-1", model.StateError, "WaitTimeout", strings.Repeat("x", 600), finished))

	got, err = r.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateError, got.State)
	assert.Equal(t, "WaitTimeout", got.ErrorKind)
	assert.Len(t, got.Message, 512)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func TestRunRepoUnknownRun(t *testing.T) {
	r := newRunRepo(t)
	ctx := context.Background()

	err := r.Finish(ctx, "missing", model.StateAwaitingManualStep, "", "done", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunRepoRecentNewestFirst(t *testing.T) {
	r := newRunRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Create(ctx, runRecord(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	runs, err = r.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
