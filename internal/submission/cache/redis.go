package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// RedisCache shares results between every API process.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns (nil, false, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, hash id.ContentHash) (*models.Result, bool, error) {
	data, err := c.client.Get(ctx, Key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", Key(hash), err)
	}
	r, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, r *models.Result) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, Key(r.Hash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", Key(r.Hash), err)
	}
	return nil
}
