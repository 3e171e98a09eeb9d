package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sheetql/sheetql/internal/catalog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

// EnsureSchema creates the ingest_run table when it does not exist yet. The
// schema is small enough that a migration runner would be overhead.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS ingest_run (
    run_id      BIGSERIAL PRIMARY KEY,
    source_file TEXT NOT NULL,
    base_name   TEXT NOT NULL,
    tables      INT NOT NULL,
    total_rows  BIGINT NOT NULL,
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure ingest_run table: %w", err)
	}
	return nil
}

func (r *Repository) RecordRun(ctx context.Context, in catalog.RecordRunInput) (catalog.IngestRun, error) {
	query := `
INSERT INTO ingest_run (source_file, base_name, tables, total_rows, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING run_id, created_at`

	run := catalog.IngestRun{
		SourceFile: in.SourceFile,
		BaseName:   in.BaseName,
		Tables:     in.Tables,
		TotalRows:  in.TotalRows,
		CreatedBy:  in.CreatedBy,
	}
	if err := r.db.QueryRowContext(ctx, query, in.SourceFile, in.BaseName, in.Tables, in.TotalRows, in.CreatedBy).
		Scan(&run.RunID, &run.CreatedAt); err != nil {
		return catalog.IngestRun{}, fmt.Errorf("record ingest run: %w", err)
	}
	return run, nil
}

func (r *Repository) ListRuns(ctx context.Context, limit int) ([]catalog.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT run_id, source_file, base_name, tables, total_rows, created_by, created_at
FROM ingest_run
ORDER BY run_id DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]catalog.IngestRun, 0, limit)
	for rows.Next() {
		var run catalog.IngestRun
		if err := rows.Scan(
			&run.RunID,
			&run.SourceFile,
			&run.BaseName,
			&run.Tables,
			&run.TotalRows,
			&run.CreatedBy,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest runs: %w", err)
	}
	return runs, nil
}
