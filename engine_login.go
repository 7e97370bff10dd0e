package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/internal/mfa"
	"github.com/MrEthical07/authcore/password"
)

// Authenticate checks identifier (email or username) and password.
//
// When the account has MFA enabled a login challenge is delivered through
// the Notifier and the result carries MFARequired with no tokens; finish
// with SubmitMFALogin. Otherwise the result carries a token pair.
//
// Unknown accounts and wrong passwords both fail with ErrInvalidCredentials.
// A legacy plaintext credential that matches is replaced by a hash before
// tokens are issued.
func (e *Engine) Authenticate(ctx context.Context, identifier, pw string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	identifier = normalizeIdentifier(identifier)
	if err := e.allow(ctx, LimitLogin, identifier, MetricLoginRateLimited); err != nil {
		return nil, err
	}

	if identifier == "" || pw == "" {
		e.loginFailed(ctx, AuditEntry{Identifier: identifier, Reason: reasonEmptyCredentials})
		return nil, ErrInvalidCredentials
	}

	user, err := e.users.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.loginFailed(ctx, AuditEntry{Identifier: identifier, Reason: reasonAccountNotFound})
			return nil, ErrInvalidCredentials
		}
		e.loginFailed(ctx, AuditEntry{Identifier: identifier, Reason: reasonStorageUnavailable})
		return nil, storageError(err)
	}

	if !e.checkPassword(ctx, user, pw) {
		e.loginFailed(ctx, AuditEntry{Identifier: user.Email, UserID: user.ID, Reason: reasonPasswordMismatch})
		return nil, ErrInvalidCredentials
	}

	if !user.MFAEnabled {
		return e.completeLogin(ctx, user, AuditMethodPassword)
	}

	code, err := e.mfa.StartLogin(ctx, user.Email)
	if err != nil {
		e.loginFailed(ctx, AuditEntry{Identifier: user.Email, UserID: user.ID, Reason: reasonStorageUnavailable})
		return nil, storageError(err)
	}
	err = e.notifier.SendMFACode(ctx, MFACodeMessage{
		Scope:     string(mfa.ScopeLogin),
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresIn: e.config.MFA.LoginTTL,
	})
	if err != nil {
		// An undeliverable code must not stay redeemable.
		if cerr := e.mfa.Cancel(ctx, mfa.ScopeLogin, user.Email); cerr != nil {
			e.logger.Warn().Err(cerr).Str("identifier", user.Email).Msg("mfa challenge cancel failed")
		}
		e.metrics.Inc(MetricDeliveryFailure)
		e.logger.Error().Err(err).Str("identifier", user.Email).Msg("mfa login code delivery failed")
		e.loginFailed(ctx, AuditEntry{Identifier: user.Email, UserID: user.ID, Reason: reasonDeliveryFailed})
		return nil, errors.Join(ErrDeliveryFailed, err)
	}

	e.metrics.Inc(MetricMFALoginRequired)
	return &LoginResult{MFARequired: true, MFAEmail: user.Email}, nil
}

// SubmitMFALogin completes a login that returned MFARequired. The challenge
// is consumed by the first submission whether or not the code matches.
func (e *Engine) SubmitMFALogin(ctx context.Context, email, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	outcome, err := e.mfa.Verify(ctx, mfa.ScopeLogin, email, code)
	if err != nil {
		e.metrics.Inc(MetricMFALoginFailure)
		e.loginFailed(ctx, AuditEntry{Identifier: email, Method: AuditMethodMFA, Reason: reasonStorageUnavailable})
		return nil, storageError(err)
	}
	if !outcome.Valid {
		e.metrics.Inc(MetricMFALoginFailure)
		e.loginFailed(ctx, AuditEntry{Identifier: email, Method: AuditMethodMFA, Reason: reasonMFAInvalid})
		return nil, ErrMFAInvalidOrExpired
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		e.metrics.Inc(MetricMFALoginFailure)
		if errors.Is(err, ErrAccountNotFound) {
			e.loginFailed(ctx, AuditEntry{Identifier: email, Method: AuditMethodMFA, Reason: reasonAccountNotFound})
			return nil, ErrMFAInvalidOrExpired
		}
		e.loginFailed(ctx, AuditEntry{Identifier: email, Method: AuditMethodMFA, Reason: reasonStorageUnavailable})
		return nil, storageError(err)
	}

	result, err := e.completeLogin(ctx, user, AuditMethodMFA)
	if err != nil {
		e.metrics.Inc(MetricMFALoginFailure)
		return nil, err
	}
	e.metrics.Inc(MetricMFALoginSuccess)
	return result, nil
}

// completeLogin is the terminal success state: mint tokens, then audit.
func (e *Engine) completeLogin(ctx context.Context, user *User, method string) (*LoginResult, error) {
	pair, err := e.issuePair(user.Email)
	if err != nil {
		e.logger.Error().Err(err).Str("identifier", user.Email).Msg("token issuance failed")
		e.loginFailed(ctx, AuditEntry{Identifier: user.Email, UserID: user.ID, Method: method, Reason: reasonTokenIssueFailed})
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.recordLogin(ctx, AuditEntry{
		Identifier: user.Email,
		UserID:     user.ID,
		Success:    true,
		Method:     method,
	})
	return &LoginResult{Tokens: pair, User: user.Public()}, nil
}

func (e *Engine) loginFailed(ctx context.Context, entry AuditEntry) {
	e.metrics.Inc(MetricLoginFailure)
	entry.Success = false
	e.recordLogin(ctx, entry)
}

// checkPassword compares pw with the stored credential and writes back any
// replacement hash. Write-back failures are logged; the login still stands.
func (e *Engine) checkPassword(ctx context.Context, user *User, pw string) bool {
	check, err := e.hasher.Check(pw, user.PasswordHash, e.config.Password.UpgradeOnLogin)
	if err != nil {
		if !check.Match {
			e.logger.Warn().Err(err).Str("identifier", user.Email).Msg("stored credential unreadable")
			return false
		}
		if errors.Is(err, password.ErrUpgrade) {
			e.logger.Warn().Err(err).Str("identifier", user.Email).Msg("password rehash failed")
		}
	}
	if !check.Match {
		return false
	}
	if check.NewHash == "" {
		return true
	}

	if err := e.users.UpdatePasswordHash(ctx, user.Email, check.NewHash); err != nil {
		msg := "password hash upgrade write failed"
		if check.Legacy {
			msg = "legacy password migration write failed"
		}
		e.logger.Error().Err(err).Str("identifier", user.Email).Msg(msg)
		return true
	}

	user.PasswordHash = check.NewHash
	if check.Legacy {
		e.metrics.Inc(MetricLegacyPasswordMigrated)
		e.logger.Info().Str("identifier", user.Email).Msg("legacy password migrated")
	} else {
		e.metrics.Inc(MetricPasswordHashUpgraded)
	}
	return true
}

// normalizeIdentifier only trims: username case sensitivity is the
// repository's decision.
func normalizeIdentifier(identifier string) string {
	return strings.TrimSpace(identifier)
}
