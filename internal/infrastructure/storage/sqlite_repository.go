package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"LinkScanner/internal/domain"
	"LinkScanner/internal/ports"
)

// resultsPerInsert keeps multi-row inserts under SQLite's bound-variable cap.
const resultsPerInsert = 400

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		output      TEXT NOT NULL,
		total       INTEGER NOT NULL,
		failures    INTEGER NOT NULL,
		status      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		run_id              TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url                 TEXT NOT NULL,
		reference_count     INTEGER NOT NULL,
		reference_score_sum INTEGER NOT NULL,
		status              INTEGER,
		error_kind          TEXT,
		error_detail        TEXT,
		elapsed_seconds     REAL,
		PRIMARY KEY (run_id, url)
	)`,
	`CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at)`,
}

// SQLiteRepository archives runs and their per-URL outcomes in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ResultRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the history database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	repo := NewSQLiteRepository(db)
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteRepository wires an already opened sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveRun stores the run row and every result in one transaction. Saving the
// same run ID again replaces the earlier snapshot.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run domain.Run, results []domain.CheckResult) (err error) {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	del, args, err := sq.Delete("results").Where(sq.Eq{"run_id": run.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	upsert, args, err := sq.Insert("runs").
		Columns("id", "started_at", "output", "total", "failures", "status").
		Values(run.ID, run.StartedAt.UTC().UnixNano(), run.Output, run.Total, run.Failures, string(run.Status)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			started_at = excluded.started_at,
			output = excluded.output,
			total = excluded.total,
			failures = excluded.failures,
			status = excluded.status`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upsert, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	for start := 0; start < len(results); start += resultsPerInsert {
		end := min(start+resultsPerInsert, len(results))
		if err = insertResults(ctx, tx, run.ID, results[start:end]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func insertResults(ctx context.Context, tx *sql.Tx, runID string, results []domain.CheckResult) error {
	insert := sq.Insert("results").Columns(
		"run_id", "url", "reference_count", "reference_score_sum",
		"status", "error_kind", "error_detail", "elapsed_seconds",
	)
	for _, res := range results {
		var kind *string
		if res.ErrorKind != nil {
			k := string(*res.ErrorKind)
			kind = &k
		}
		insert = insert.Values(runID, res.URL, res.ReferenceCount(), res.ScoreSum(),
			res.Status, kind, res.ErrorDetail, res.ElapsedSeconds)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build results insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRepository) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if r.db == nil || limit <= 0 {
		return nil, nil
	}

	query, args, err := sq.Select("id", "started_at", "output", "total", "failures", "status").
		From("runs").
		OrderBy("started_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build runs query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []domain.Run
	for rows.Next() {
		var (
			run     domain.Run
			started int64
			status  string
		)
		if err := rows.Scan(&run.ID, &started, &run.Output, &run.Total, &run.Failures, &status); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.Unix(0, started).UTC()
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return runs, nil
}

// FailureCounts returns how many failures of each kind a run recorded.
func (r *SQLiteRepository) FailureCounts(ctx context.Context, runID string) (map[domain.ErrorKind]int, error) {
	query, args, err := sq.Select("error_kind", "COUNT(*)").
		From("results").
		Where(sq.And{sq.Eq{"run_id": runID}, sq.NotEq{"error_kind": nil}}).
		GroupBy("error_kind").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build failure query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ErrorKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan failure count: %w", err)
		}
		k := domain.ErrorKind(kind)
		if !k.Valid() {
			return nil, fmt.Errorf("unknown error kind %q in run %s", kind, runID)
		}
		counts[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return counts, nil
}
