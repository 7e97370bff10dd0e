package authcore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *authcore.Engine
	users  *memory.Users
	outbox *notify.Outbox
	sink   *authcore.MemoryAuditSink
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *fakeClock
}

type envOption func(*authcore.Builder)

func testConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*authcore.Config), opts ...envOption) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		users:  memory.NewUsers(),
		outbox: notify.NewOutbox(),
		sink:   authcore.NewMemoryAuditSink(),
		mr:     mr,
		rdb:    rdb,
		clock:  newFakeClock(),
	}

	b := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(env.users).
		WithNotifier(env.outbox).
		WithAuditSink(env.sink).
		WithClock(env.clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) register(t testing.TB, email, username, pw string) string {
	t.Helper()
	res, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email:    email,
		Username: username,
		Name:     "Test User",
		Password: pw,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res.UserID
}

func (env *testEnv) login(t testing.TB, identifier, pw string) *authcore.LoginResult {
	t.Helper()
	res, err := env.engine.Authenticate(context.Background(), identifier, pw)
	if err != nil {
		t.Fatalf("Authenticate(%s): %v", identifier, err)
	}
	return res
}

func (env *testEnv) enableMFA(t testing.TB, email, pw string) {
	t.Helper()
	ctx := context.Background()
	res := env.login(t, email, pw)
	if _, err := env.engine.SetupMFA(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	code, ok := env.outbox.LastCode(email, "setup")
	if !ok {
		t.Fatal("setup code was not delivered")
	}
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code); err != nil {
		t.Fatalf("VerifyMFASetup: %v", err)
	}
}

func (env *testEnv) counter(id authcore.MetricID) uint64 {
	return env.engine.MetricsSnapshot().Counters[id]
}

type failingSink struct{ calls int }

func (s *failingSink) Append(context.Context, authcore.AuditEntry) error {
	s.calls++
	return errors.New("audit table unavailable")
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
