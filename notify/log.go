package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore"
)

// Log writes every message to a zerolog logger, codes and tokens included.
// It is for local development only.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendMFACode(_ context.Context, msg authcore.MFACodeMessage) error {
	l.logger.Info().
		Str("scope", msg.Scope).
		Str("email", msg.Email).
		Str("code", msg.Code).
		Dur("expires_in", msg.ExpiresIn).
		Msg("mfa code")
	return nil
}

func (l *Log) SendPasswordReset(_ context.Context, msg authcore.PasswordResetMessage) error {
	l.logger.Info().
		Str("email", msg.Email).
		Str("token", msg.Token).
		Dur("expires_in", msg.ExpiresIn).
		Msg("password reset token")
	return nil
}
