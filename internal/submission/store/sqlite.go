package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// NewSQLite wraps an open SQLite handle.
func NewSQLite(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: sqliteDialect}
}

// OpenSQLite opens a database file with the pure Go modernc driver. SQLite
// allows a single writer, so the pool is capped at one connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

var sqliteDialect = dialect{
	name:   "sqlite",
	schema: "migrations/sqlite.sql",
	insertIgnore: `INSERT INTO submissions (content_hash, original_content, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (content_hash) DO NOTHING
RETURNING ` + submissionColumns,
	selectByHash: `SELECT ` + submissionColumns + ` FROM submissions WHERE content_hash = ?1`,
	resetIndexed: `UPDATE submissions SET indexed_at = NULL WHERE indexed_at IS NOT NULL`,
	saveProcessed: `UPDATE submissions SET processed_content = ?2, updated_at = ?3
WHERE content_hash = ?1 AND processed_content IS NULL`,
	exists: `SELECT 1 FROM submissions WHERE content_hash = ?1`,
	listUnindexed: `SELECT ` + submissionColumns + ` FROM submissions
WHERE processed_content IS NOT NULL AND indexed_at IS NULL
ORDER BY updated_at LIMIT ?1`,
	listUnproc: `SELECT ` + submissionColumns + ` FROM submissions
WHERE processed_content IS NULL
ORDER BY created_at LIMIT ?1`,
	bulkUpdate: `UPDATE submissions SET
    processed_content = COALESCE(processed_content, ?2),
    indexed_at = COALESCE(?3, indexed_at),
    updated_at = ?4
WHERE content_hash = ?1`,
	encodeTime: func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
}
