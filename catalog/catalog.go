// Package catalog keeps run history and a per-fetch attempt log in SQLite.
//
// The catalog is observability, not state: triage recomputes the work list
// from the record store every run, so a lost or absent catalog never affects
// which records get fetched.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/veldtlabs/ecocat/dbopen"
	"github.com/veldtlabs/ecocat/idgen"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/scheduler"
)

// Catalog wraps the catalog database.
type Catalog struct {
	db       *sql.DB
	newRunID idgen.Generator
	newLogID idgen.Generator
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return NewCatalog(db), nil
}

// NewCatalog wraps an already-opened database. The caller is responsible for
// the schema; see EnsureSchema.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		db:       db,
		newRunID: idgen.Prefixed("run_", idgen.Default),
		newLogID: idgen.Prefixed("ft_", idgen.Default),
	}
}

// EnsureSchema creates the catalog tables if they don't exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// BeginRun inserts a new run row and returns its ID. kind distinguishes
// detail runs from KML runs.
func (c *Catalog) BeginRun(ctx context.Context, kind string) (string, error) {
	id := c.newRunID()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at) VALUES (?, ?, ?)`,
		id, kind, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("catalog: begin run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters for a run.
func (c *Catalog) FinishRun(ctx context.Context, runID string, sum *record.Summary) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, considered = ?, skipped_fresh = ?,
		fetched_new = ?, fetched_updated = ?, failed = ? WHERE id = ?`,
		time.Now().Unix(), sum.Considered, sum.SkippedFresh,
		sum.FetchedNew, sum.FetchedUpdated, sum.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("catalog: finish run: %w", err)
	}
	return nil
}

// Recorder returns a scheduler.Recorder that logs attempts against runID.
func (c *Catalog) Recorder(runID string) *RunRecorder {
	return &RunRecorder{catalog: c, runID: runID}
}

// RunRecorder writes fetch attempts for one run. Write failures are logged,
// never propagated: a failing catalog must not block the engine.
type RunRecorder struct {
	catalog *Catalog
	runID   string
}

// Record implements scheduler.Recorder.
func (r *RunRecorder) Record(ctx context.Context, a scheduler.Attempt) {
	_, err := r.catalog.db.ExecContext(ctx,
		`INSERT INTO fetch_log (id, run_id, category, record_id, reason,
		outcome, error, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.catalog.newLogID(), r.runID, string(a.Descriptor.Category), a.Descriptor.ID,
		string(a.Reason), string(a.Outcome), a.Err,
		a.Duration.Milliseconds(), a.At.Unix(),
	)
	if err != nil {
		slog.Warn("catalog: fetch log write failed", "run", r.runID,
			"key", a.Descriptor.Key(), "error", err)
	}
}

// Run is one row of run history.
type Run struct {
	ID         string
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time // zero if the run never finished
	Summary    record.Summary
}

// History returns recent runs, newest first.
func (c *Catalog) History(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, considered, skipped_fresh,
		fetched_new, fetched_updated, failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Kind, &started, &finished,
			&r.Summary.Considered, &r.Summary.SkippedFresh,
			&r.Summary.FetchedNew, &r.Summary.FetchedUpdated, &r.Summary.Failed); err != nil {
			return nil, fmt.Errorf("catalog: scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AttemptRow is one row of the fetch log.
type AttemptRow struct {
	ID        string
	RunID     string
	Category  string
	RecordID  string
	Reason    string
	Outcome   string
	Err       string
	Duration  time.Duration
	FetchedAt time.Time
}

// Attempts returns the fetch log for a run, newest first.
func (c *Catalog) Attempts(ctx context.Context, runID string, limit int) ([]AttemptRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, run_id, category, record_id, reason, outcome, error,
		duration_ms, fetched_at
		FROM fetch_log WHERE run_id = ?
		ORDER BY fetched_at DESC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var a AttemptRow
		var durMs, at int64
		if err := rows.Scan(&a.ID, &a.RunID, &a.Category, &a.RecordID,
			&a.Reason, &a.Outcome, &a.Err, &durMs, &at); err != nil {
			return nil, fmt.Errorf("catalog: scan attempt: %w", err)
		}
		a.Duration = time.Duration(durMs) * time.Millisecond
		a.FetchedAt = time.Unix(at, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}
