package reset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/kvstore"
	"github.com/MrEthical07/authcore/password"
)

func newFlow(t *testing.T, kv kvstore.Store, opts ...Option) *Flow {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	f, err := NewFlow(kv, Config{TTL: time.Hour, KeyPrefix: "t"}, password.DefaultPolicy(), hasher, opts...)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return f
}

func TestConfirmSucceedsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	f := newFlow(t, kvstore.NewRedisStore(client))
	ctx := context.Background()

	token, err := f.Issue(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one stored token, have %v", mr.Keys())
	}
	if mr.Exists("t:reset:" + token) {
		t.Fatal("raw token must not be used as the storage key")
	}

	conf, err := f.Confirm(ctx, token, "N3w!Password")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if conf.Email != "alice@example.com" || conf.NewHash == "" {
		t.Fatalf("unexpected confirmation: %+v", conf)
	}

	if _, err := f.Confirm(ctx, token, "N3w!Password"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("replay: expected ErrInvalidOrExpired, got %v", err)
	}
}

func TestPolicyFailureStillSpendsToken(t *testing.T) {
	f := newFlow(t, kvstore.NewMemoryStore())
	ctx := context.Background()

	token, _ := f.Issue(ctx, "bob@example.com")
	_, err := f.Confirm(ctx, token, "weak")
	var pe *password.PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *password.PolicyError, got %v", err)
	}

	if _, err := f.Confirm(ctx, token, "N3w!Password"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected token to be spent, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	f := newFlow(t, kvstore.NewMemoryStore(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	token, _ := f.Issue(ctx, "carol@example.com")
	now = now.Add(time.Hour)
	if _, err := f.Confirm(ctx, token, "N3w!Password"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired, got %v", err)
	}
}

func TestUnknownAndMalformedTokens(t *testing.T) {
	f := newFlow(t, kvstore.NewMemoryStore())
	for _, token := range []string{"", "not-base64!", "c2hvcnQ", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := f.Confirm(context.Background(), token, "N3w!Password"); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("token %q: expected ErrInvalidOrExpired, got %v", token, err)
		}
	}
}

func TestConcurrentConfirmSucceedsOnce(t *testing.T) {
	f := newFlow(t, kvstore.NewMemoryStore())
	ctx := context.Background()
	token, _ := f.Issue(ctx, "dave@example.com")

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Confirm(ctx, token, "N3w!Password"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("%d confirmations succeeded", ok.Load())
	}
}

func TestStorageFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	f := newFlow(t, kvstore.NewRedisStore(client))
	mr.Close()

	if _, err := f.Issue(context.Background(), "x@example.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRevokeSpendsToken(t *testing.T) {
	f := newFlow(t, kvstore.NewMemoryStore())
	ctx := context.Background()

	token, err := f.Issue(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := f.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := f.Revoke(ctx, token); err != nil {
		t.Fatalf("second Revoke should be a no-op, got %v", err)
	}
	if _, err := f.Confirm(ctx, token, "N3w!Password"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
}
