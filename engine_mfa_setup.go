package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/mfa"
)

// SetupMFA starts MFA enrolment for the caller of accessToken. The code is
// delivered through the Notifier and, when MFAConfig.ReturnSetupCode is
// set, also returned.
func (e *Engine) SetupMFA(ctx context.Context, accessToken string) (*MFASetupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	user, err := e.currentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	code, err := e.mfa.StartSetup(ctx, user.ID)
	if err != nil {
		return nil, storageError(err)
	}

	err = e.notifier.SendMFACode(ctx, MFACodeMessage{
		Scope:     string(mfa.ScopeSetup),
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresIn: e.config.MFA.SetupTTL,
	})
	if err != nil {
		if cerr := e.mfa.Cancel(ctx, mfa.ScopeSetup, user.ID); cerr != nil {
			e.logger.Warn().Err(cerr).Str("identifier", user.Email).Msg("mfa challenge cancel failed")
		}
		e.metrics.Inc(MetricDeliveryFailure)
		e.logger.Error().Err(err).Str("identifier", user.Email).Msg("mfa setup code delivery failed")
		return nil, errors.Join(ErrDeliveryFailed, err)
	}

	e.metrics.Inc(MetricMFASetupStarted)
	result := &MFASetupResult{ExpiresIn: e.config.MFA.SetupTTL}
	if e.config.MFA.ReturnSetupCode {
		result.Code = code
	}
	return result, nil
}

// VerifyMFASetup consumes the setup challenge and, on a match, turns MFA on
// for the account. Later logins then require a code.
func (e *Engine) VerifyMFASetup(ctx context.Context, accessToken, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	user, err := e.currentUser(ctx, accessToken)
	if err != nil {
		return err
	}

	outcome, err := e.mfa.Verify(ctx, mfa.ScopeSetup, user.ID, code)
	if err != nil {
		e.metrics.Inc(MetricMFASetupFailure)
		return storageError(err)
	}
	if !outcome.Valid {
		e.metrics.Inc(MetricMFASetupFailure)
		return ErrMFAInvalidOrExpired
	}

	if outcome.EnableMFA {
		if err := e.users.SetMFAEnabled(ctx, user.ID, true); err != nil {
			e.metrics.Inc(MetricMFASetupFailure)
			return storageError(err)
		}
	}
	e.metrics.Inc(MetricMFASetupConfirmed)
	e.logger.Info().Str("identifier", user.Email).Msg("mfa enabled")
	return nil
}
