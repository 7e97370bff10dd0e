// Package reset issues and redeems single-use password reset tokens.
package reset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/kvstore"
	"github.com/MrEthical07/authcore/password"
)

var (
	// ErrInvalidOrExpired is returned for unknown, already used or expired tokens.
	ErrInvalidOrExpired = errors.New("reset: token invalid or expired")
	// ErrUnavailable wraps reset storage failures.
	ErrUnavailable = errors.New("reset: storage unavailable")
)

// Config controls token lifetime and storage namespace.
type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

// Confirmation carries what the caller must persist after a redeemed token.
type Confirmation struct {
	Email   string
	NewHash string
}

// Flow implements request and confirm. It does not look accounts up or write
// them; the caller owns the repository.
type Flow struct {
	store  *stores.PasswordResetStore
	ttl    time.Duration
	policy password.Policy
	hasher *password.Hasher
	now    func() time.Time
	random io.Reader
}

// Option customises a Flow.
type Option func(*Flow)

// WithClock sets the time source for token expiry.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithRandom sets the entropy source for tokens.
func WithRandom(r io.Reader) Option {
	return func(f *Flow) { f.random = r }
}

func NewFlow(kv kvstore.Store, cfg Config, policy password.Policy, hasher *password.Hasher, opts ...Option) (*Flow, error) {
	if kv == nil || hasher == nil {
		return nil, errors.New("reset: store and hasher are required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("reset: TTL must be positive")
	}
	f := &Flow{
		store:  stores.NewPasswordResetStore(kv, kvstore.Join(cfg.KeyPrefix, "reset")),
		ttl:    cfg.TTL,
		policy: policy,
		hasher: hasher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Issue stores a new token for email and returns it. Earlier tokens for the
// same email stay valid until used or expired.
func (f *Flow) Issue(ctx context.Context, email string) (string, error) {
	token, err := internal.NewResetToken(f.random)
	if err != nil {
		return "", fmt.Errorf("reset: generate token: %w", err)
	}
	digest, err := internal.DigestResetToken(token)
	if err != nil {
		return "", err
	}

	rec := &stores.PasswordResetRecord{Email: email, ExpiresAt: f.now().Add(f.ttl)}
	if err := f.store.Save(ctx, digest, rec, f.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

// Confirm consumes token before anything else, then checks expiry and the
// new password against the policy. A token is spent even when the policy
// check fails.
func (f *Flow) Confirm(ctx context.Context, token, newPassword string) (*Confirmation, error) {
	email, err := f.redeem(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := f.policy.Check(newPassword); err != nil {
		return nil, err
	}

	hash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("reset: hash password: %w", err)
	}
	return &Confirmation{Email: email, NewHash: hash}, nil
}

// Revoke spends token without a password change, for tokens that could not
// be delivered. Unknown tokens are ignored.
func (f *Flow) Revoke(ctx context.Context, token string) error {
	_, err := f.redeem(ctx, token)
	if err != nil && !errors.Is(err, ErrInvalidOrExpired) {
		return err
	}
	return nil
}

func (f *Flow) redeem(ctx context.Context, token string) (string, error) {
	digest, err := internal.DigestResetToken(token)
	if err != nil {
		return "", ErrInvalidOrExpired
	}

	rec, err := f.store.Take(ctx, digest)
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrResetNotFound), errors.Is(err, stores.ErrRecordCorrupt):
		return "", ErrInvalidOrExpired
	default:
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !f.now().Before(rec.ExpiresAt) {
		return "", ErrInvalidOrExpired
	}
	return rec.Email, nil
}
