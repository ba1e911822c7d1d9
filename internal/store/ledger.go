package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"agroquote/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		mode        TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		success     INTEGER NOT NULL,
		empty       INTEGER NOT NULL,
		skipped     INTEGER NOT NULL,
		errors      INTEGER NOT NULL,
		records     INTEGER NOT NULL,
		halted_at   TEXT NOT NULL DEFAULT '',
		halt_reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		run_id  TEXT NOT NULL REFERENCES runs(id),
		seq     INTEGER NOT NULL,
		date    TEXT NOT NULL,
		status  TEXT NOT NULL,
		records INTEGER NOT NULL,
		tables  INTEGER NOT NULL,
		detail  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS outcomes_date ON outcomes(date)`,
}

// Ledger records ingestion runs in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (or creates) the ledger database at dbPath and applies
// the schema.
func OpenLedger(dbPath string) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating ledger dir")
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening ledger")
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrating ledger")
		}
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// SaveRun stores r and its outcomes in one transaction.
func (l *Ledger) SaveRun(ctx context.Context, r domain.Report) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, started_at, finished_at, success, empty, skipped, errors, records, halted_at, halt_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
		r.Success, r.Empty, r.Skipped, r.Errors, r.Records, r.HaltedAt, r.HaltReason)
	if err != nil {
		return errors.Wrapf(err, "inserting run %s", r.RunID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, seq, date, status, records, tables, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "preparing outcome insert")
	}
	defer stmt.Close()

	for i, o := range r.Outcomes {
		if _, err := stmt.ExecContext(ctx, r.RunID, i, o.Date, string(o.Status), o.Records, o.Tables, o.Detail); err != nil {
			return errors.Wrapf(err, "inserting outcome %s", o.Date)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first, without outcomes.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]domain.Report, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, mode, started_at, finished_at, success, empty, skipped, errors, records, halted_at, halt_reason
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var out []domain.Report
	for rows.Next() {
		var r domain.Report
		var started, finished int64
		if err := rows.Scan(&r.RunID, &r.Mode, &started, &finished,
			&r.Success, &r.Empty, &r.Skipped, &r.Errors, &r.Records, &r.HaltedAt, &r.HaltReason); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Outcomes returns the per-date outcomes of a run in recorded order.
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT date, status, records, tables, detail FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "querying outcomes")
	}
	defer rows.Close()

	var out []domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		var status string
		if err := rows.Scan(&o.Date, &status, &o.Records, &o.Tables, &o.Detail); err != nil {
			return nil, errors.Wrap(err, "scanning outcome")
		}
		o.Status = domain.Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
