package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures.
var ErrRedisUnavailable = errors.New("rate: redis unavailable")

// Window counts hits per key in fixed windows.
type Window struct {
	redis  redis.UniversalClient
	prefix string
}

func NewWindow(redisClient redis.UniversalClient, prefix string) *Window {
	return &Window{redis: redisClient, prefix: prefix}
}

// Hit records one attempt for key and reports whether the count is still
// within max for the current window.
func (w *Window) Hit(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	count, err := w.incrementWithTTL(ctx, w.key(key), window)
	if err != nil {
		return false, err
	}
	return count <= int64(max), nil
}

// Count returns the hits recorded for key in the current window.
func (w *Window) Count(ctx context.Context, key string) (int, error) {
	count, err := w.redis.Get(ctx, w.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Reset clears the counter for key.
func (w *Window) Reset(ctx context.Context, key string) error {
	if err := w.redis.Del(ctx, w.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (w *Window) key(key string) string {
	if w.prefix == "" {
		return key
	}
	return w.prefix + ":" + key
}

func (w *Window) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := w.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
