package limiter_test

import (
	"context"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/store/memory"
)

func newNoUsers() authcore.UserRepository { return memory.NewUsers() }

type nopNotifier struct{}

func (nopNotifier) SendMFACode(context.Context, authcore.MFACodeMessage) error { return nil }

func (nopNotifier) SendPasswordReset(context.Context, authcore.PasswordResetMessage) error {
	return nil
}
