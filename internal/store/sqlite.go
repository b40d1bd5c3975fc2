// Package store persists processing run history in SQLite so past runs can
// be inspected after the fact with `brewlog runs`.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brewlab/brewlog-cli/internal/model"
)

// Run is one recorded invocation of the processing pipeline.
type Run struct {
	ID        string        `json:"id"`
	InputPath string        `json:"input_path"`
	Mode      string        `json:"mode"`
	Report    *model.Report `json:"report,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Processing modes recorded with each run.
const (
	ModeSelective = "selective"
	ModeFull      = "full"
)

// RunFilter narrows ListRuns output.
type RunFilter struct {
	Mode   string
	Limit  int
	Offset int
}

// SQLiteStore keeps run history in a modernc.org/sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input_path TEXT NOT NULL,
	mode       TEXT NOT NULL,
	report     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun stores the report of a completed processing run.
func (s *SQLiteStore) RecordRun(ctx context.Context, inputPath, mode string, report *model.Report) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var reportJSON sql.NullString
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal report")
		}
		reportJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, mode, report, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, inputPath, mode, reportJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		InputPath: inputPath,
		Mode:      mode,
		Report:    report,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, mode, report, created_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, input_path, mode, report, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, filter.Mode)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var reportJSON sql.NullString

	err := row.Scan(&r.ID, &r.InputPath, &r.Mode, &reportJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if reportJSON.Valid && reportJSON.String != "" {
		r.Report = &model.Report{}
		if err := json.Unmarshal([]byte(reportJSON.String), r.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
	}
	return &r, nil
}
