// Package stores persists the short-lived records behind MFA challenges and
// password reset tokens on top of a kvstore.Store.
//
// Records are versioned and binary encoded. Take is the only read path and
// always goes through the store's atomic get-and-delete, so a record is
// observed at most once. Expiry and secret comparison are decided by the
// callers in internal/mfa and internal/reset, not here.
package stores
