package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/authcore"
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory keeps one token bucket per action and key. A bucket holds the
// action's limit and refills it over one window.
type Memory struct {
	cfg authcore.RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// MemoryOption customises a Memory limiter.
type MemoryOption func(*Memory)

// WithClock sets the time source used for refills and eviction.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(cfg authcore.RateLimitConfig, opts ...MemoryOption) *Memory {
	m := &Memory{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Allow(_ context.Context, action authcore.LimitAction, key string) (bool, error) {
	max := limitFor(m.cfg, action)
	if max <= 0 {
		return true, nil
	}

	now := m.now()
	id := string(action) + ":" + key

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[id]
	if !ok {
		every := m.cfg.Window / time.Duration(max)
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), max)}
		m.buckets[id] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// Sweep drops buckets untouched for longer than one window. Callers with
// many distinct keys should run it periodically.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.cfg.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, b := range m.buckets {
		if b.seen.Before(cutoff) {
			delete(m.buckets, id)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
