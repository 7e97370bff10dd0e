package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis 6.2+ (GETDEL).
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore wraps an existing client. The client's lifecycle stays with the caller.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("kvstore: non-positive ttl for %q", key)
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	return mapRedis(s.redis.Get(ctx, key).Bytes())
}

func (s *RedisStore) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	return mapRedis(s.redis.GetDel(ctx, key).Bytes())
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func mapRedis(data []byte, err error) ([]byte, error) {
	if err == nil {
		return data, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}
