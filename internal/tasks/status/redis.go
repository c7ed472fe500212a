package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// RedisStore shares task status between API processes and workers.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Claim writes a Pending record only if no record exists.
func (s *RedisStore) Claim(ctx context.Context, hash id.ContentHash) (bool, error) {
	data, err := encode(models.Pending{})
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, Key(hash), data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim task %s: %w", hash, err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, hash id.ContentHash) error {
	if err := s.client.Del(ctx, Key(hash)).Err(); err != nil {
		return fmt.Errorf("release task %s: %w", hash, err)
	}
	return nil
}

func (s *RedisStore) Set(ctx context.Context, hash id.ContentHash, status models.TaskStatus) error {
	data, err := encode(status)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, Key(hash), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set task status %s: %w", hash, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, hash id.ContentHash) (models.TaskStatus, error) {
	data, err := s.client.Get(ctx, Key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Pending{}, nil
		}
		return nil, fmt.Errorf("get task status %s: %w", hash, err)
	}
	return decode(data)
}
