package authcore

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/mfa"
	"github.com/MrEthical07/authcore/internal/reset"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/rs/zerolog"
)

// Engine runs the authentication flows. It is safe for concurrent use; all
// shared state lives in the TTL store and the user repository.
type Engine struct {
	config       Config
	users        UserRepository
	notifier     Notifier
	limiter      Limiter
	hasher       *password.Hasher
	policy       password.Policy
	tokens       *jwt.Manager
	mfa          *mfa.Manager
	reset        *reset.Flow
	recorder     *audit.Recorder
	dispatcher   *audit.Dispatcher
	history      AuditSink
	metrics      *Metrics
	logger       zerolog.Logger
	now          func() time.Time
	storeBackend string
	closed       atomic.Bool
}

// Close flushes the async audit queue, if any. Calls after Close fail with
// ErrEngineNotReady.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// AuditDropped reports entries the async audit queue discarded.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.dispatcher == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ValidatePasswordStrength scores password against the configured policy.
// It never fails.
func (e *Engine) ValidatePasswordStrength(pw string) password.Result {
	if e == nil {
		return password.DefaultPolicy().Validate(pw)
	}
	return e.policy.Validate(pw)
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// allow consults the optional limiter once per dimension: the identifier
// and, when the context carries one, the client IP. A failing limiter
// rejects the call.
func (e *Engine) allow(ctx context.Context, action LimitAction, key string, limited MetricID) error {
	if e.limiter == nil {
		return nil
	}
	keys := []string{"id:" + strings.ToLower(key)}
	if ip := clientIPFromContext(ctx); ip != "" {
		keys = append(keys, "ip:"+ip)
	}
	for _, k := range keys {
		ok, err := e.limiter.Allow(ctx, action, k)
		if err != nil {
			return storageError(err)
		}
		if !ok {
			e.metrics.Inc(limited)
			return ErrRateLimited
		}
	}
	return nil
}

func (e *Engine) issuePair(subject string) (*TokenPair, error) {
	access, err := e.tokens.IssueAccess(subject)
	if err != nil {
		return nil, errors.Join(ErrTokenIssueFailed, err)
	}
	refresh, err := e.tokens.IssueRefresh(subject)
	if err != nil {
		return nil, errors.Join(ErrTokenIssueFailed, err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		AccessExpiresIn:  e.tokens.AccessTTL(),
		RefreshExpiresIn: e.tokens.RefreshTTL(),
	}, nil
}

// subjectOf verifies raw as a token of kind typ and returns its subject.
func (e *Engine) subjectOf(raw string, typ jwt.TokenType) (string, error) {
	claims, err := e.tokens.Verify(strings.TrimSpace(raw), typ)
	if err != nil {
		return "", mapTokenError(err)
	}
	return claims.Subject, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenTypeMismatch):
		return ErrTokenTypeMismatch
	default:
		return ErrTokenInvalid
	}
}

// currentUser resolves the account behind a valid access token. An account
// removed after issuance makes the token invalid.
func (e *Engine) currentUser(ctx context.Context, accessToken string) (*User, error) {
	email, err := e.subjectOf(accessToken, jwt.TypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, storageError(err)
	}
	return user, nil
}

// GetProfile returns the public view of the account the access token was
// issued to.
func (e *Engine) GetProfile(ctx context.Context, accessToken string) (*PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	user, err := e.currentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
