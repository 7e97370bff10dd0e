package limiter

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/rate"
)

// Redis is a fixed-window limiter backed by Redis.
type Redis struct {
	window *rate.Window
	cfg    authcore.RateLimitConfig
}

// NewRedis returns a limiter that stores counters under prefix.
func NewRedis(client redis.UniversalClient, prefix string, cfg authcore.RateLimitConfig) *Redis {
	return &Redis{
		window: rate.NewWindow(client, prefix+":rl"),
		cfg:    cfg,
	}
}

func (l *Redis) Allow(ctx context.Context, action authcore.LimitAction, key string) (bool, error) {
	max := limitFor(l.cfg, action)
	if max <= 0 {
		return true, nil
	}
	return l.window.Hit(ctx, string(action)+":"+key, max, l.cfg.Window)
}

// Reset forgets the attempts recorded for key under action.
func (l *Redis) Reset(ctx context.Context, action authcore.LimitAction, key string) error {
	return l.window.Reset(ctx, string(action)+":"+key)
}

func limitFor(cfg authcore.RateLimitConfig, action authcore.LimitAction) int {
	switch action {
	case authcore.LimitLogin:
		return cfg.Login
	case authcore.LimitRegister:
		return cfg.Register
	case authcore.LimitPasswordReset:
		return cfg.PasswordReset
	default:
		return 0
	}
}
