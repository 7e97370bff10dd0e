package authcore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
)

func TestMFASetupEnablesMFA(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "xena@example.com", "xena", "Str0ng!Pass")
	ctx := context.Background()
	res := env.login(t, "xena", "Str0ng!Pass")

	setup, err := env.engine.SetupMFA(ctx, res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	if setup.Code != "" {
		t.Fatal("setup code must not be returned unless configured")
	}
	if setup.ExpiresIn != 10*time.Minute {
		t.Fatalf("unexpected setup ttl %v", setup.ExpiresIn)
	}

	code, ok := env.outbox.LastCode("xena@example.com", "setup")
	if !ok {
		t.Fatal("setup code not delivered")
	}
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code); err != nil {
		t.Fatalf("VerifyMFASetup: %v", err)
	}
	if u, _ := env.users.Get(id); !u.MFAEnabled {
		t.Fatal("mfa flag not persisted")
	}
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code); !errors.Is(err, authcore.ErrMFAInvalidOrExpired) {
		t.Fatalf("setup code reuse: expected ErrMFAInvalidOrExpired, got %v", err)
	}

	if next := env.login(t, "xena", "Str0ng!Pass"); !next.MFARequired {
		t.Fatal("login after setup should require MFA")
	}
	if env.counter(authcore.MetricMFASetupConfirmed) != 1 || env.counter(authcore.MetricMFALoginRequired) != 1 {
		t.Fatal("mfa counters not updated")
	}
}

func TestMFASetupReturnsCodeWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(c *authcore.Config) { c.MFA.ReturnSetupCode = true })
	env.register(t, "yuri@example.com", "yuri", "Str0ng!Pass")
	res := env.login(t, "yuri", "Str0ng!Pass")

	setup, err := env.engine.SetupMFA(context.Background(), res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	delivered, _ := env.outbox.LastCode("yuri@example.com", "setup")
	if setup.Code == "" || setup.Code != delivered {
		t.Fatalf("expected returned code to match delivered code, got %q vs %q", setup.Code, delivered)
	}
}

func TestMFASetupWrongCodeLeavesMFADisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "zack@example.com", "zack", "Str0ng!Pass")
	ctx := context.Background()
	res := env.login(t, "zack", "Str0ng!Pass")

	if _, err := env.engine.SetupMFA(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	code, _ := env.outbox.LastCode("zack@example.com", "setup")
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, wrongCode(code)); !errors.Is(err, authcore.ErrMFAInvalidOrExpired) {
		t.Fatalf("expected ErrMFAInvalidOrExpired, got %v", err)
	}
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code); !errors.Is(err, authcore.ErrMFAInvalidOrExpired) {
		t.Fatalf("challenge must be consumed by the wrong guess, got %v", err)
	}
	if u, _ := env.users.Get(id); u.MFAEnabled {
		t.Fatal("mfa must stay disabled")
	}
}

func TestMFASetupExpires(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "abby@example.com", "abby", "Str0ng!Pass")
	ctx := context.Background()
	res := env.login(t, "abby", "Str0ng!Pass")

	if _, err := env.engine.SetupMFA(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	code, _ := env.outbox.LastCode("abby@example.com", "setup")

	env.clock.Advance(11 * time.Minute)
	if err := env.engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code); !errors.Is(err, authcore.ErrMFAInvalidOrExpired) {
		t.Fatalf("expected expired setup challenge, got %v", err)
	}
}

func TestMFASetupRequiresAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.SetupMFA(context.Background(), "garbage"); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
