package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	"blurifier/pkg/platform/tx"
)

// dialect holds the statements and value encoding that differ between SQL
// backends. Scanning and transaction handling are shared.
type dialect struct {
	name          string
	schema        string
	insertIgnore  string
	selectByHash  string
	saveProcessed string
	exists        string
	listUnindexed string
	listUnproc    string
	bulkUpdate    string
	resetIndexed  string
	encodeTime    func(time.Time) any
}

// SQLStore persists submissions in a relational database.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// DB exposes the handle for health checks and test cleanup.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect names the backend, "postgres" or "sqlite".
func (s *SQLStore) Dialect() string {
	return s.d.name
}

// Migrate creates the submissions table and its indexes if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema, err := migrations.ReadFile(s.d.schema)
	if err != nil {
		return fmt.Errorf("read %s schema: %w", s.d.name, err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *SQLStore) FindByHash(ctx context.Context, hash id.ContentHash) (*models.Submission, error) {
	row := tx.Execer(ctx, s.db).QueryRowContext(ctx, s.d.selectByHash, hash.String())
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return sub, nil
}

// GetOrCreate inserts a new row for content or returns the existing one. The
// insert relies on the primary key, so racing callers cannot create two rows.
func (s *SQLStore) GetOrCreate(ctx context.Context, content string, now time.Time) (*models.Submission, bool, error) {
	sub := models.NewSubmission(content, now)
	row := tx.Execer(ctx, s.db).QueryRowContext(ctx, s.d.insertIgnore,
		sub.Hash.String(), sub.OriginalContent, s.d.encodeTime(sub.CreatedAt), s.d.encodeTime(sub.UpdatedAt))
	created, err := scanSubmission(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert submission: %w", err)
	}

	existing, err := s.FindByHash(ctx, sub.Hash)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SaveProcessed stores the redaction result once. A second call for an
// already processed row is a no-op.
func (s *SQLStore) SaveProcessed(ctx context.Context, hash id.ContentHash, processed string, now time.Time) error {
	exec := tx.Execer(ctx, s.db)
	res, err := exec.ExecContext(ctx, s.d.saveProcessed, hash.String(), processed, s.d.encodeTime(now))
	if err != nil {
		return fmt.Errorf("save processed content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save processed content: %w", err)
	}
	if n > 0 {
		return nil
	}

	var one int
	if err := exec.QueryRowContext(ctx, s.d.exists, hash.String()).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("save processed content: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUnindexed(ctx context.Context, limit int) ([]*models.Submission, error) {
	return s.list(ctx, s.d.listUnindexed, limit)
}

func (s *SQLStore) ListUnprocessed(ctx context.Context, limit int) ([]*models.Submission, error) {
	return s.list(ctx, s.d.listUnproc, limit)
}

// BulkUpdate applies all updates in one transaction; any failure rolls the
// whole batch back.
func (s *SQLStore) BulkUpdate(ctx context.Context, updates []models.Update) error {
	if len(updates) == 0 {
		return nil
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Execer(ctx, s.db)
		for _, u := range updates {
			var processed, indexed any
			if u.ProcessedContent != nil {
				processed = *u.ProcessedContent
			}
			if u.IndexedAt != nil {
				indexed = s.d.encodeTime(*u.IndexedAt)
			}
			if _, err := exec.ExecContext(ctx, s.d.bulkUpdate,
				u.Hash.String(), processed, indexed, s.d.encodeTime(u.UpdatedAt)); err != nil {
				return fmt.Errorf("bulk update %s: %w", u.Hash, err)
			}
		}
		return nil
	})
}

// ResetIndexed clears every indexing watermark so the sweeper re-indexes all
// processed rows. It returns the number of rows cleared.
func (s *SQLStore) ResetIndexed(ctx context.Context) (int64, error) {
	res, err := tx.Execer(ctx, s.db).ExecContext(ctx, s.d.resetIndexed)
	if err != nil {
		return 0, fmt.Errorf("reset indexing watermarks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset indexing watermarks: %w", err)
	}
	return n, nil
}

func (s *SQLStore) list(ctx context.Context, query string, limit int) ([]*models.Submission, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		hash      string
		sub       models.Submission
		processed sql.NullString
		createdAt dbTime
		updatedAt dbTime
		indexedAt dbTime
	)
	if err := row.Scan(&hash, &sub.OriginalContent, &processed, &createdAt, &updatedAt, &indexedAt); err != nil {
		return nil, err
	}
	sub.Hash = id.ContentHash(strings.TrimSpace(hash))
	if processed.Valid {
		p := processed.String
		sub.ProcessedContent = &p
	}
	sub.CreatedAt = createdAt.Time
	sub.UpdatedAt = updatedAt.Time
	if indexedAt.Valid {
		t := indexedAt.Time
		sub.IndexedAt = &t
	}
	return &sub, nil
}

// sqliteTimeLayout is fixed width so lexical order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// dbTime scans timestamps from drivers that return time.Time as well as
// from TEXT columns.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}
