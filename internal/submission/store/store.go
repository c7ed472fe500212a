// Package store persists submissions. Every implementation keys rows by
// content hash and enforces the uniqueness of that key itself, so concurrent
// GetOrCreate calls for the same content always resolve to one row.
package store

import (
	"embed"

	"blurifier/pkg/platform/sentinel"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when no row exists for a hash.
var ErrNotFound = sentinel.ErrNotFound

const submissionColumns = `content_hash, original_content, processed_content, created_at, updated_at, indexed_at`
