// Package rate holds the Redis fixed-window counter behind limiter.Redis.
//
// # Window semantics
//
// INCR on every hit, EXPIRE on the first hit of a window. A key therefore
// resets one window after its first hit, not after its last.
package rate
