package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/reset"
)

// RequestPasswordReset issues a single-use reset token for email, delivers
// it through the Notifier and returns it. Unknown emails fail with
// ErrAccountNotFound.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	email = normalizeEmail(email)
	if err := e.allow(ctx, LimitPasswordReset, email, MetricPasswordResetRateLimited); err != nil {
		return "", err
	}
	if email == "" {
		return "", ErrAccountNotFound
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}
		return "", storageError(err)
	}

	token, err := e.reset.Issue(ctx, user.Email)
	if err != nil {
		return "", storageError(err)
	}

	err = e.notifier.SendPasswordReset(ctx, PasswordResetMessage{
		Email:     user.Email,
		Token:     token,
		ExpiresIn: e.config.PasswordReset.TTL,
	})
	if err != nil {
		if rerr := e.reset.Revoke(ctx, token); rerr != nil {
			e.logger.Warn().Err(rerr).Str("identifier", user.Email).Msg("reset token revoke failed")
		}
		e.metrics.Inc(MetricDeliveryFailure)
		e.logger.Error().Err(err).Str("identifier", user.Email).Msg("password reset delivery failed")
		return "", errors.Join(ErrDeliveryFailed, err)
	}

	e.metrics.Inc(MetricPasswordResetRequest)
	return token, nil
}

// ConfirmPasswordReset spends token and, if newPassword satisfies the
// policy, stores its hash for the token's account. The token cannot be
// reused after this call whatever the outcome.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	conf, err := e.reset.Confirm(ctx, token, newPassword)
	if err != nil {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		switch {
		case errors.Is(err, reset.ErrInvalidOrExpired):
			return ErrResetTokenInvalid
		case errors.Is(err, reset.ErrUnavailable):
			return storageError(err)
		default:
			// *PolicyError or a hashing failure.
			return err
		}
	}

	if err := e.users.UpdatePasswordHash(ctx, conf.Email, conf.NewHash); err != nil {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrResetTokenInvalid
		}
		return storageError(err)
	}

	e.metrics.Inc(MetricPasswordResetConfirmSuccess)
	e.logger.Info().Str("identifier", conf.Email).Msg("password reset completed")
	return nil
}
