// Package notify holds Notifier implementations that do not leave the
// process.
package notify

import (
	"context"
	"sync"

	"github.com/MrEthical07/authcore"
)

// Outbox keeps every message in memory. Tests and demos read codes and
// reset tokens back from it instead of an inbox.
type Outbox struct {
	mu     sync.Mutex
	codes  []authcore.MFACodeMessage
	resets []authcore.PasswordResetMessage
	fail   error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// FailWith makes every later send return err. Pass nil to recover.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	o.fail = err
	o.mu.Unlock()
}

func (o *Outbox) SendMFACode(_ context.Context, msg authcore.MFACodeMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.codes = append(o.codes, msg)
	return nil
}

func (o *Outbox) SendPasswordReset(_ context.Context, msg authcore.PasswordResetMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.resets = append(o.resets, msg)
	return nil
}

// LastCode returns the newest code sent to email in scope ("setup" or "login").
func (o *Outbox) LastCode(email, scope string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.codes) - 1; i >= 0; i-- {
		if o.codes[i].Email == email && o.codes[i].Scope == scope {
			return o.codes[i].Code, true
		}
	}
	return "", false
}

// LastResetToken returns the newest reset token sent to email.
func (o *Outbox) LastResetToken(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.resets) - 1; i >= 0; i-- {
		if o.resets[i].Email == email {
			return o.resets[i].Token, true
		}
	}
	return "", false
}

// Sent reports how many messages of each kind were delivered.
func (o *Outbox) Sent() (codes, resets int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.codes), len(o.resets)
}
