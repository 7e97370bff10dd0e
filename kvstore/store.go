package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrUnavailable wraps transport failures of the backing store.
	ErrUnavailable = errors.New("kvstore: backend unavailable")
)

// Store is a TTL-capable key-value store.
type Store interface {
	// Set stores value under key; the entry disappears after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// GetAndDelete atomically returns and removes the value under key.
	GetAndDelete(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Join builds a namespaced key.
func Join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
