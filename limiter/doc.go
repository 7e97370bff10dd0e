// Package limiter provides authcore.Limiter implementations driven by
// authcore.RateLimitConfig.
//
// Redis counts attempts in fixed windows shared by every process that uses
// the same Redis. Memory keeps a token bucket per key in the local process
// and is meant for single-instance deployments and tests.
//
// A zero limit for an action disables limiting for that action.
package limiter
