package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the keyed store with Redis for deployments where multiple
// instances share state. Rows live under "<table>:<key>".
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKey(table, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s/%s: %w", table, key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, table, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKey(table, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s/%s: %w", table, key, err)
	}
	return nil
}

func (s *RedisStore) Unset(ctx context.Context, table, key string) error {
	if err := s.client.Del(ctx, redisKey(table, key)).Err(); err != nil {
		return fmt.Errorf("redis unset %s/%s: %w", table, key, err)
	}
	return nil
}

func redisKey(table, key string) string {
	return table + ":" + key
}
