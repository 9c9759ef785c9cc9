// Package postgres persists completed query results for later lookup.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS query_results (
	job_id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	answer TEXT NOT NULL,
	citations JSONB NOT NULL DEFAULT '[]'::jsonb,
	mode TEXT NOT NULL,
	top_k INT NOT NULL,
	score_floor DOUBLE PRECISION NOT NULL DEFAULT 0,
	ts BIGINT NOT NULL,
	callback_error TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_results_created_at ON query_results(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save is idempotent on job_id so redelivered bus messages do not overwrite
// the first persisted result.
func (r *ResultRepository) Save(ctx context.Context, result *domain.Result) error {
	citations, err := json.Marshal(result.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_results (job_id, prompt, answer, citations, mode, top_k, score_floor, ts, callback_error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (job_id) DO NOTHING
`,
		result.JobID,
		result.Prompt,
		result.Answer,
		citations,
		string(result.Mode),
		result.TopK,
		result.ScoreFloor,
		result.TS,
		nullableString(result.CallbackError),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert query result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByJobID(ctx context.Context, jobID string) (*domain.Result, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT job_id, prompt, answer, citations, mode, top_k, score_floor, ts, COALESCE(callback_error, '')
FROM query_results
WHERE job_id = $1
`, jobID)

	var result domain.Result
	var citations []byte
	var mode string
	if err := row.Scan(
		&result.JobID,
		&result.Prompt,
		&result.Answer,
		&citations,
		&mode,
		&result.TopK,
		&result.ScoreFloor,
		&result.TS,
		&result.CallbackError,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get query result", fmt.Errorf("job %q", jobID))
		}
		return nil, fmt.Errorf("get query result: %w", err)
	}

	result.Mode = domain.RetrievalMode(mode)
	if len(citations) > 0 {
		if err := json.Unmarshal(citations, &result.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
	}
	return &result, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
