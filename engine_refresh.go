package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/jwt"
)

// Refresh exchanges a valid refresh token for a new access and refresh
// pair for the same subject.
//
// The presented refresh token is not revoked and stays usable until its own
// expiry. Callers needing rotation with reuse detection must track token
// ids themselves.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	subject, err := e.subjectOf(refreshToken, jwt.TypeRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}

	pair, err := e.issuePair(subject)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.logger.Error().Err(err).Str("identifier", subject).Msg("token issuance failed")
		return nil, err
	}
	e.metrics.Inc(MetricRefreshSuccess)
	return pair, nil
}
