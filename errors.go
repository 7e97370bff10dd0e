package authcore

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/password"
)

// ErrUnauthorized is the umbrella for every credential, token, MFA and reset
// failure. Transports can map it to a single response without learning which
// check failed.
var ErrUnauthorized = errors.New("unauthorized")

var (
	// ErrInvalidCredentials is returned for unknown identifiers and wrong passwords alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	// ErrMFAInvalidOrExpired is returned when an MFA code is wrong, used or expired.
	ErrMFAInvalidOrExpired = fmt.Errorf("%w: mfa code invalid or expired", ErrUnauthorized)
	// ErrTokenInvalid is returned for malformed or badly signed tokens.
	ErrTokenInvalid = fmt.Errorf("%w: token invalid", ErrUnauthorized)
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)
	// ErrTokenTypeMismatch is returned when an access token is presented as a refresh token or the reverse.
	ErrTokenTypeMismatch = fmt.Errorf("%w: token type mismatch", ErrUnauthorized)
	// ErrResetTokenInvalid is returned for unknown, spent or expired reset tokens.
	ErrResetTokenInvalid = fmt.Errorf("%w: reset token invalid or expired", ErrUnauthorized)
)

var (
	// ErrAccountNotFound is returned by RequestPasswordReset for unknown emails.
	// Repositories also return it from lookups that match nothing.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPasswordPolicy matches every *PolicyError.
	ErrPasswordPolicy = password.ErrPolicyViolation
	// ErrDuplicateRegistration matches every *DuplicateError.
	ErrDuplicateRegistration = errors.New("duplicate registration")
	// ErrRegistrationInvalid matches every *RegistrationError.
	ErrRegistrationInvalid = errors.New("registration invalid")
	// ErrStorageUnavailable wraps repository and TTL store transport failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDeliveryFailed is returned when the Notifier could not send a code or token.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrTokenIssueFailed is returned when signing a token fails.
	ErrTokenIssueFailed = errors.New("token issuance failed")
	// ErrRateLimited is returned when the configured Limiter rejects a call.
	ErrRateLimited = errors.New("rate limited")
	// ErrHistoryUnsupported is returned by LoginHistory when the audit sink cannot list entries.
	ErrHistoryUnsupported = errors.New("audit sink does not support history")
	// ErrEngineNotReady is returned when a nil or closed Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PolicyError lists the password rules a candidate password broke.
type PolicyError = password.PolicyError

// DuplicateError names the unique field that already exists.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s already registered", ErrDuplicateRegistration, e.Field)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateRegistration }

// RegistrationError reports a malformed registration field.
type RegistrationError struct {
	Field  string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrRegistrationInvalid, e.Field, e.Reason)
}

func (e *RegistrationError) Is(target error) bool { return target == ErrRegistrationInvalid }

func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
