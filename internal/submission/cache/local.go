package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// LocalCache keeps results in process memory. Used alone when Redis is not
// configured, and as the first tier in front of Redis otherwise.
type LocalCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewLocal builds a cache bounded by maxCost bytes of encoded results.
func NewLocal(maxCost int64, ttl time.Duration) (*LocalCache, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 100,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &LocalCache{cache: c, ttl: ttl}, nil
}

func (c *LocalCache) Get(_ context.Context, hash id.ContentHash) (*models.Result, bool, error) {
	v, ok := c.cache.Get(Key(hash))
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("local cache: unexpected value type %T", v)
	}
	r, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Set admits the entry asynchronously; ristretto may drop it under pressure.
func (c *LocalCache) Set(_ context.Context, r *models.Result) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	c.cache.SetWithTTL(Key(r.Hash), data, int64(len(data)), c.ttl)
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *LocalCache) Wait() {
	c.cache.Wait()
}

func (c *LocalCache) Close() {
	c.cache.Close()
}
