package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/mfa"
	"github.com/MrEthical07/authcore/internal/reset"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kvstore"
	"github.com/MrEthical07/authcore/password"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder collects collaborators and configuration for an Engine. A Builder
// can be built once.
type Builder struct {
	config Config

	store        kvstore.Store
	storeBackend string

	users    UserRepository
	notifier Notifier
	limiter  Limiter
	sink     AuditSink
	logger   zerolog.Logger
	now      func() time.Time

	built bool
}

// New returns a Builder starting from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis keeps MFA challenges and reset tokens in Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client == nil {
		b.store = nil
		return b
	}
	b.store = kvstore.NewRedisStore(client)
	b.storeBackend = "redis"
	return b
}

// WithStore sets any TTL store implementation, such as kvstore.MemoryStore
// for single-process deployments.
func (b *Builder) WithStore(store kvstore.Store) *Builder {
	b.store = store
	switch store.(type) {
	case *kvstore.MemoryStore:
		b.storeBackend = "memory"
	case *kvstore.RedisStore:
		b.storeBackend = "redis"
	default:
		b.storeBackend = "custom"
		if named, ok := store.(interface{ Backend() string }); ok {
			b.storeBackend = named.Backend()
		}
	}
	return b
}

func (b *Builder) WithUserRepository(users UserRepository) *Builder {
	b.users = users
	return b
}

// WithAuditSink sets where login audit entries go. Without one, entries
// are discarded.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLimiter enables throttling of Authenticate, Register and
// RequestPasswordReset.
func (b *Builder) WithLimiter(l Limiter) *Builder {
	b.limiter = l
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the time source for token, challenge and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("ttl store required: use WithRedis or WithStore")
	}
	if b.users == nil {
		return nil, errors.New("user repository required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		users:        b.users,
		notifier:     b.notifier,
		limiter:      b.limiter,
		policy:       cfg.passwordPolicy(),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       b.logger.With().Str("component", "authcore").Logger(),
		now:          now,
		storeBackend: b.storeBackend,
	}

	hasher, err := password.NewHasher(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	challenges, err := mfa.NewManager(b.store, mfa.Config{
		SetupTTL:  cfg.MFA.SetupTTL,
		LoginTTL:  cfg.MFA.LoginTTL,
		KeyPrefix: cfg.KeyPrefix,
	}, mfa.WithClock(now))
	if err != nil {
		return nil, err
	}
	engine.mfa = challenges

	flow, err := reset.NewFlow(b.store, reset.Config{
		TTL:       cfg.PasswordReset.TTL,
		KeyPrefix: cfg.KeyPrefix,
	}, engine.policy, hasher, reset.WithClock(now))
	if err != nil {
		return nil, err
	}
	engine.reset = flow

	var sink audit.Sink = b.sink
	if cfg.Audit.Async {
		engine.dispatcher = audit.NewDispatcher(audit.DispatcherConfig{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink, engine.auditFailed)
		sink = engine.dispatcher
	}
	engine.history = b.sink
	engine.recorder = audit.NewRecorder(sink, now, engine.auditFailed)

	b.built = true
	return engine, nil
}
