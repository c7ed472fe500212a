// Package cache holds terminal results keyed by content hash. A cached entry
// is only ever written for a processed submission, and processed content
// never changes, so entries need no invalidation beyond their TTL.
package cache

import (
	"encoding/json"
	"fmt"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

const keyPrefix = "result:"

// Key returns the cache key for a hash.
func Key(hash id.ContentHash) string {
	return keyPrefix + hash.String()
}

func encode(r *models.Result) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("result is required")
	}
	if !r.IsTerminalSuccess() {
		return nil, fmt.Errorf("refusing to cache non-terminal result for %s", r.Hash)
	}
	return json.Marshal(r)
}

func decode(data []byte) (*models.Result, error) {
	var r models.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &r, nil
}
