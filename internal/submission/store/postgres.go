package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"blurifier/internal/platform/config"
)

// NewPostgres wraps an open PostgreSQL handle.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: postgresDialect}
}

// OpenPostgres connects with lib/pq and applies pool settings.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var postgresDialect = dialect{
	name:   "postgres",
	schema: "migrations/postgres.sql",
	insertIgnore: `INSERT INTO submissions (content_hash, original_content, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (content_hash) DO NOTHING
RETURNING ` + submissionColumns,
	selectByHash: `SELECT ` + submissionColumns + ` FROM submissions WHERE content_hash = $1`,
	resetIndexed: `UPDATE submissions SET indexed_at = NULL WHERE indexed_at IS NOT NULL`,
	saveProcessed: `UPDATE submissions SET processed_content = $2, updated_at = $3
WHERE content_hash = $1 AND processed_content IS NULL`,
	exists: `SELECT 1 FROM submissions WHERE content_hash = $1`,
	listUnindexed: `SELECT ` + submissionColumns + ` FROM submissions
WHERE processed_content IS NOT NULL AND indexed_at IS NULL
ORDER BY updated_at LIMIT $1`,
	listUnproc: `SELECT ` + submissionColumns + ` FROM submissions
WHERE processed_content IS NULL
ORDER BY created_at LIMIT $1`,
	bulkUpdate: `UPDATE submissions SET
    processed_content = COALESCE(processed_content, $2::text),
    indexed_at = COALESCE($3::timestamptz, indexed_at),
    updated_at = $4
WHERE content_hash = $1`,
	encodeTime: func(t time.Time) any { return t.UTC() },
}
