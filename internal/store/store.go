// Package store persists run reports to PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/reporting"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is the subset of pgxpool.Pool the store uses, so tests can mock it.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS e2e_runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    seed        BIGINT NOT NULL,
    total       INTEGER NOT NULL,
    passed      INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS e2e_results (
    run_id      TEXT NOT NULL REFERENCES e2e_runs (run_id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    scenario    TEXT NOT NULL,
    status      TEXT NOT NULL,
    tags        TEXT[] NOT NULL,
    duration_ms BIGINT NOT NULL,
    error       TEXT NOT NULL,
    steps       JSONB NOT NULL,
    PRIMARY KEY (run_id, position)
);`

const insertRunSQL = `
INSERT INTO e2e_runs (run_id, started_at, finished_at, seed, total, passed, failed, skipped)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

const recentRunsSQL = `
SELECT run_id, started_at, finished_at, seed, total, passed, failed, skipped
FROM e2e_runs
ORDER BY started_at DESC
LIMIT $1;`

var resultColumns = []string{"run_id", "position", "scenario", "status", "tags", "duration_ms", "error", "steps"}

// RunSummary is one stored run without its per-scenario results.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Seed       int64
	reporting.Summary
}

// Store writes run reports to PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("database pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the run tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun stores report and its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *reporting.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report must have a run id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	sum := report.Summary()
	_, err = tx.Exec(ctx, insertRunSQL,
		report.RunID, report.StartedAt.UTC(), report.FinishedAt.UTC(), report.Seed,
		sum.Total, sum.Passed, sum.Failed, sum.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	if len(report.Results) > 0 {
		if err := s.copyResults(ctx, tx, report); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run stored", zap.String("run_id", report.RunID), zap.Int("results", len(report.Results)))
	return nil
}

func (s *Store) copyResults(ctx context.Context, tx pgx.Tx, report *reporting.Report) error {
	rows := make([][]any, len(report.Results))
	for i, res := range report.Results {
		steps, err := jsonAPI.Marshal(res.Steps)
		if err != nil {
			return fmt.Errorf("failed to encode steps of %s: %w", res.Scenario, err)
		}
		tags := res.Tags
		if tags == nil {
			tags = []string{}
		}
		rows[i] = []any{
			report.RunID, i, res.Scenario, string(res.Status), tags,
			res.Duration.Milliseconds(), res.Error, steps,
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"e2e_results"}, resultColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy results: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("mismatch in copied results count: expected %d, got %d", len(rows), n)
	}
	return nil
}

// RecentRuns returns up to n runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]RunSummary, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, recentRunsSQL, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Seed,
			&r.Total, &r.Passed, &r.Failed, &r.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
