package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SchemaVersion is the current catalog schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    command TEXT NOT NULL,
    model TEXT NOT NULL,
    created_at TEXT NOT NULL,
    seed INTEGER NOT NULL,
    dt REAL NOT NULL,
    particles INTEGER NOT NULL,
    lx REAL NOT NULL,
    ly REAL NOT NULL,
    steps INTEGER NOT NULL,
    elapsed_ns INTEGER NOT NULL,
    params TEXT NOT NULL,
    metrics TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Catalog indexes saved runs in a SQLite database.
type Catalog struct {
	db *sql.DB
}

func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record inserts or replaces the catalog row of a run.
func (c *Catalog) Record(ctx context.Context, meta *RunMetadata) error {
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, name, command, model, created_at, seed, dt, particles, lx, ly, steps, elapsed_ns, params, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Command, meta.Model,
		meta.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Seed, meta.Dt, meta.Particles, meta.Lx, meta.Ly, meta.Steps,
		int64(meta.Elapsed), string(params), string(metrics))
	return err
}

const selectRuns = `SELECT id, name, command, model, created_at, seed, dt, particles, lx, ly, steps, elapsed_ns, params, metrics FROM runs`

// List returns every run, newest first.
func (c *Catalog) List(ctx context.Context) ([]RunMetadata, error) {
	rows, err := c.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *meta)
	}
	return runs, rows.Err()
}

func (c *Catalog) Get(ctx context.Context, id string) (*RunMetadata, error) {
	meta, err := scanRun(c.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return meta, err
}

// Delete removes a run from the catalog; its directory is left alone.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunMetadata, error) {
	var (
		meta            RunMetadata
		created         string
		elapsed         int64
		params, metrics string
	)
	err := row.Scan(&meta.ID, &meta.Name, &meta.Command, &meta.Model, &created,
		&meta.Seed, &meta.Dt, &meta.Particles, &meta.Lx, &meta.Ly, &meta.Steps,
		&elapsed, &params, &metrics)
	if err != nil {
		return nil, err
	}

	if meta.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp %q: %w", meta.ID, created, err)
	}
	meta.Elapsed = time.Duration(elapsed)
	if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
		return nil, fmt.Errorf("run %s: bad params: %w", meta.ID, err)
	}
	if err := json.Unmarshal([]byte(metrics), &meta.Metrics); err != nil {
		return nil, fmt.Errorf("run %s: bad metrics: %w", meta.ID, err)
	}
	return &meta, nil
}
