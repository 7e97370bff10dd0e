// Package internal holds helpers private to authcore: secure random codes
// and tokens, plus the sub-packages below.
//
//   - audit: login audit recording and the bounded async dispatcher
//   - dbx: database/sql transaction helpers shared by the SQL stores
//   - mfa: one-time MFA code issue and verification
//   - rate: fixed-window counters on Redis
//   - reset: password reset token issue and spending
//   - stores: versioned records on top of kvstore.Store
package internal
