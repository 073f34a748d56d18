package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// RunSchema creates the run history table.  Ensure runs it on startup.
const RunSchema = `CREATE TABLE IF NOT EXISTS booking_runs (
	id          CHAR(36)     NOT NULL PRIMARY KEY,
	mode        VARCHAR(16)  NOT NULL,
	train       VARCHAR(64)  NOT NULL,
	travel_date CHAR(10)     NOT NULL,
	state       VARCHAR(32)  NOT NULL,
	error_kind  VARCHAR(64)  NOT NULL DEFAULT '',
	message     VARCHAR(512) NOT NULL DEFAULT '',
	started_at  DATETIME     NOT NULL,
	finished_at DATETIME     NULL,
	INDEX idx_booking_runs_started (started_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// RunRepo mirrors the 'booking_runs' table.  Schema is the DDL Ensure
// runs; it defaults to RunSchema.
type RunRepo struct {
	DB     *sql.DB
	Schema string
}

func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{DB: db, Schema: RunSchema} }

// Ensure creates the table when missing.
func (r *RunRepo) Ensure(ctx context.Context) error {
	schema := r.Schema
	if schema == "" {
		schema = RunSchema
	}
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Create inserts a freshly accepted run.
func (r *RunRepo) Create(ctx context.Context, rec model.RunRecord) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO booking_runs (id, mode, train, travel_date, state, started_at) VALUES (?,?,?,?,?,?)",
		rec.ID, string(rec.Mode), rec.Train, rec.TravelDate, string(rec.State), rec.StartedAt.UTC())
	return err
}

// Finish stores the final state of a run.
func (r *RunRepo) Finish(ctx context.Context, id string, state model.FlowState, errorKind, message string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE booking_runs SET state=?, error_kind=?, message=?, finished_at=? WHERE id=?",
		string(state), errorKind, truncate(message, 512), at.UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches one run.
func (r *RunRepo) GetByID(ctx context.Context, id string) (model.RunRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id,mode,train,travel_date,state,error_kind,message,started_at,finished_at FROM booking_runs WHERE id=? LIMIT 1", id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, ErrNotFound
	}
	return rec, err
}

// Recent lists the newest runs first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,mode,train,travel_date,state,error_kind,message,started_at,finished_at FROM booking_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanRun(s scanner) (model.RunRecord, error) {
	var (
		rec      model.RunRecord
		mode     string
		state    string
		finished sql.NullTime
	)
	if err := s.Scan(&rec.ID, &mode, &rec.Train, &rec.TravelDate, &state, &rec.ErrorKind, &rec.Message, &rec.StartedAt, &finished); err != nil {
		return model.RunRecord{}, err
	}
	rec.Mode = model.Mode(mode)
	rec.State = model.FlowState(state)
	if finished.Valid {
		t := finished.Time
		rec.FinishedAt = &t
	}
	return rec, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
