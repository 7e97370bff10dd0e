// Package authcore is an authentication core: password login with legacy
// credential migration, typed JWT access and refresh tokens, single-use
// MFA challenges, single-use password reset tokens, registration and login
// auditing.
//
// An [Engine] is assembled with [New] and [Builder.Build]. It needs a
// [UserRepository], a [Notifier] and a TTL store (Redis through
// [Builder.WithRedis] or any kvstore.Store). Engine methods are safe to call
// from many goroutines.
//
// # Login state machine
//
// Authenticate resolves the account and checks the password. Accounts
// without MFA receive tokens immediately. Accounts with MFA receive a
// delivered 6 digit code and a result with MFARequired set, and finish
// with SubmitMFALogin. Each login is audited once, when it reaches a
// terminal state.
//
// # Single use
//
// MFA challenges and reset tokens are consumed with an atomic
// get-and-delete, so concurrent submissions of the same code or token
// succeed at most once.
//
// # What this package must NOT do
//
//   - Distinguish unknown accounts from wrong passwords in returned errors.
//   - Return MFA login codes to the caller.
//   - Start background work other than the optional async audit queue.
//   - Revoke refresh tokens. A refresh token stays valid until it expires.
package authcore
