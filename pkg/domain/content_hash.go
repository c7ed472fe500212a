package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "blurifier/pkg/domain-errors"
)

// ContentHashLength is the hex length of a SHA-256 digest.
const ContentHashLength = sha256.Size * 2

// ContentHash identifies a submission by the SHA-256 digest of its raw bytes.
// The same value is the public identifier, the store's unique key, the task
// dedup key and the cache key suffix.
type ContentHash string

// HashContent computes the content hash of text. Deterministic; the input is
// hashed as-is with no normalization.
func HashContent(content string) ContentHash {
	sum := sha256.Sum256([]byte(content))
	return ContentHash(hex.EncodeToString(sum[:]))
}

// ParseContentHash validates an externally supplied hash. Upper-case hex is
// accepted and normalized to lower case.
func ParseContentHash(s string) (ContentHash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "content_hash is required")
	}
	if len(s) != ContentHashLength {
		return "", dErrors.New(dErrors.CodeValidation, "content_hash must be 64 hex characters")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "content_hash must be hex encoded")
	}
	return ContentHash(s), nil
}

// String returns the hex form of the hash.
func (h ContentHash) String() string {
	return string(h)
}
