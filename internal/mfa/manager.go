// Package mfa issues and verifies single-use numeric challenges for the MFA
// setup and login steps.
package mfa

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/kvstore"
)

// CodeLength is the number of digits in every challenge code.
const CodeLength = 6

// Scope separates challenges that share a subject namespace.
type Scope string

const (
	// ScopeSetup challenges are keyed by user id.
	ScopeSetup Scope = "setup"
	// ScopeLogin challenges are keyed by email.
	ScopeLogin Scope = "login"
)

// ErrUnavailable wraps challenge storage failures.
var ErrUnavailable = errors.New("mfa: challenge storage unavailable")

// Config holds per-scope lifetimes.
type Config struct {
	SetupTTL  time.Duration
	LoginTTL  time.Duration
	KeyPrefix string
}

// Outcome is the result of a verification. EnableMFA is only set by a
// successful setup verification; persisting it is the caller's job.
type Outcome struct {
	Valid     bool
	EnableMFA bool
}

// Manager generates, stores and consumes challenges.
type Manager struct {
	store    *stores.MFAChallengeStore
	setupTTL time.Duration
	loginTTL time.Duration
	now      func() time.Time
	random   io.Reader
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock sets the time source used for creation and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandom sets the entropy source for code generation.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.random = r }
}

// NewManager returns a Manager persisting challenges in kv.
func NewManager(kv kvstore.Store, cfg Config, opts ...Option) (*Manager, error) {
	if kv == nil {
		return nil, errors.New("mfa: store is required")
	}
	if cfg.SetupTTL <= 0 || cfg.LoginTTL <= 0 {
		return nil, errors.New("mfa: challenge TTLs must be positive")
	}
	m := &Manager{
		store:    stores.NewMFAChallengeStore(kv, kvstore.Join(cfg.KeyPrefix, "mfa")),
		setupTTL: cfg.SetupTTL,
		loginTTL: cfg.LoginTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GenerateCode returns a fresh zero-padded 6 digit code.
func (m *Manager) GenerateCode() (string, error) {
	return internal.NewOTP(m.random, CodeLength)
}

// StartSetup stores a setup challenge for userID and returns its code.
// Any previous setup challenge for the same user is replaced.
func (m *Manager) StartSetup(ctx context.Context, userID string) (string, error) {
	return m.start(ctx, ScopeSetup, userID, m.setupTTL)
}

// StartLogin stores a login challenge for email and returns its code.
func (m *Manager) StartLogin(ctx context.Context, email string) (string, error) {
	return m.start(ctx, ScopeLogin, email, m.loginTTL)
}

func (m *Manager) start(ctx context.Context, scope Scope, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("mfa: empty challenge key")
	}
	code, err := m.GenerateCode()
	if err != nil {
		return "", fmt.Errorf("mfa: generate code: %w", err)
	}
	challenge := &stores.MFAChallenge{Code: code, CreatedAt: m.now(), TTL: ttl}
	if err := m.store.Save(ctx, string(scope), key, challenge); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return code, nil
}

// Verify consumes the challenge under (scope, key) and compares it with
// submitted. The stored challenge is gone after this call whatever the
// result. A submission that is not 6 digits is rejected before storage is
// touched. Errors are returned only for storage failures.
func (m *Manager) Verify(ctx context.Context, scope Scope, key, submitted string) (Outcome, error) {
	if key == "" || !internal.IsNumeric(submitted, CodeLength) {
		return Outcome{}, nil
	}

	challenge, err := m.store.Take(ctx, string(scope), key)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) || errors.Is(err, stores.ErrRecordCorrupt) {
			return Outcome{}, nil
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if challenge.Expired(m.now()) {
		return Outcome{}, nil
	}
	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(submitted)) != 1 {
		return Outcome{}, nil
	}
	return Outcome{Valid: true, EnableMFA: scope == ScopeSetup}, nil
}

// Cancel drops an outstanding challenge, for example when code delivery failed.
func (m *Manager) Cancel(ctx context.Context, scope Scope, key string) error {
	if err := m.store.Discard(ctx, string(scope), key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
