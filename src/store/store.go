// Package store persists derived sample features per run in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/makoty26/HysteresisAnalyzer/src/features"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

const schemaVersion = "1"

// timeLayout is fixed-width so started_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run describes one pipeline invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	CSVDir    string
	ElmNoMax  int
	Present   int
	Missing   int
}

// Sample is the stored record of one present identifier.
type Sample struct {
	ElmNo   types.ElmNo
	Meta    types.Metadata
	Summary features.Summary
}

// Store is a SQLite-backed feature store. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			csv_dir TEXT NOT NULL,
			elm_no_max INTEGER NOT NULL,
			present INTEGER NOT NULL,
			missing INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id),
			elm_no INTEGER NOT NULL,
			cad TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			r_front REAL,
			r_rear REAL,
			rows INTEGER NOT NULL,
			range_ REAL,
			zero_crossings INTEGER NOT NULL,
			change_rate_mean REAL,
			change_rate_var REAL,
			gradient_mid REAL,
			deviation_mid REAL,
			ratio_mid REAL,
			pseudo_area REAL,
			PRIMARY KEY (run_id, elm_no)
		);
		CREATE TABLE IF NOT EXISTS missing (
			run_id TEXT NOT NULL REFERENCES runs(id),
			elm_no INTEGER NOT NULL,
			PRIMARY KEY (run_id, elm_no)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SchemaVersion returns the stored schema version.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'schema_version'").Scan(&v)
	return v, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BeginRun records a run header.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	return insertRun(ctx, s.db, r)
}

// PutSample stores or replaces the features of one identifier.
func (s *Store) PutSample(ctx context.Context, runID string, smp Sample) error {
	return insertSample(ctx, s.db, runID, smp)
}

// PutMissing records the identifiers without a file.
func (s *Store) PutMissing(ctx context.Context, runID string, ids []types.ElmNo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertMissing(ctx, tx, runID, ids); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRun records a completed run with its samples and missing identifiers in a single
// transaction. Nothing is written when any insert fails.
func (s *Store) SaveRun(ctx context.Context, r Run, samples []Sample, missing []types.ElmNo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	defer tx.Rollback()
	if err := insertRun(ctx, tx, r); err != nil {
		return err
	}
	for _, smp := range samples {
		if err := insertSample(ctx, tx, r.ID, smp); err != nil {
			return err
		}
	}
	if err := insertMissing(ctx, tx, r.ID, missing); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

func insertRun(ctx context.Context, db execer, r Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, csv_dir, elm_no_max, present, missing)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt.UTC().Format(timeLayout), r.CSVDir, r.ElmNoMax, r.Present, r.Missing)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

func insertSample(ctx context.Context, db execer, runID string, smp Sample) error {
	f := smp.Summary
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO samples (
			run_id, elm_no, cad, x, y, r_front, r_rear, rows, range_, zero_crossings,
			change_rate_mean, change_rate_var, gradient_mid, deviation_mid, ratio_mid, pseudo_area
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, int(smp.ElmNo), smp.Meta.CAD, smp.Meta.X, smp.Meta.Y,
		nullable(smp.Meta.RFront), nullable(smp.Meta.RRear), f.Rows, nullable(f.Range), f.ZeroCrossings,
		nullable(f.ChangeRateMean), nullable(f.ChangeRateVar), nullable(f.GradientMid),
		nullable(f.DeviationMid), nullable(f.RatioMid), nullable(f.PseudoArea))
	if err != nil {
		return fmt.Errorf("put sample ElmNo=%d: %w", smp.ElmNo, err)
	}
	return nil
}

func insertMissing(ctx context.Context, db execer, runID string, ids []types.ElmNo) error {
	for _, id := range ids {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO missing (run_id, elm_no) VALUES (?, ?)`, runID, int(id)); err != nil {
			return fmt.Errorf("put missing ElmNo=%d: %w", id, err)
		}
	}
	return nil
}

// Samples returns the stored samples of a run ordered by identifier.
func (s *Store) Samples(ctx context.Context, runID string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elm_no, cad, x, y, r_front, r_rear, rows, range_, zero_crossings,
			change_rate_mean, change_rate_var, gradient_mid, deviation_mid, ratio_mid, pseudo_area
		FROM samples WHERE run_id = ? ORDER BY elm_no
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var smp Sample
		var id int
		var rFront, rRear, rng, mean, variance sql.NullFloat64
		var gradient, deviation, ratio, pseudoArea sql.NullFloat64
		if err := rows.Scan(&id, &smp.Meta.CAD, &smp.Meta.X, &smp.Meta.Y, &rFront, &rRear,
			&smp.Summary.Rows, &rng, &smp.Summary.ZeroCrossings, &mean, &variance,
			&gradient, &deviation, &ratio, &pseudoArea); err != nil {
			return nil, err
		}
		smp.ElmNo = types.ElmNo(id)
		smp.Meta.RFront, smp.Meta.RRear = orNaN(rFront), orNaN(rRear)
		smp.Summary.Range = orNaN(rng)
		smp.Summary.ChangeRateMean, smp.Summary.ChangeRateVar = orNaN(mean), orNaN(variance)
		smp.Summary.GradientMid = orNaN(gradient)
		smp.Summary.DeviationMid = orNaN(deviation)
		smp.Summary.RatioMid = orNaN(ratio)
		smp.Summary.PseudoArea = orNaN(pseudoArea)
		out = append(out, smp)
	}
	return out, rows.Err()
}

// MissingIDs returns the missing identifiers of a run in ascending order.
func (s *Store) MissingIDs(ctx context.Context, runID string) ([]types.ElmNo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT elm_no FROM missing WHERE run_id = ? ORDER BY elm_no`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []types.ElmNo
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ElmNo(id))
	}
	return ids, rows.Err()
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var (
		r       Run
		started string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, csv_dir, elm_no_max, present, missing
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&r.ID, &started, &r.CSVDir, &r.ElmNoMax, &r.Present, &r.Missing)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt, err = time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp %q: %w", r.ID, started, err)
	}
	return &r, nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
