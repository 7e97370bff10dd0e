// Package audit records login attempts.
//
// # Components
//
//   - [Entry]: one immutable login attempt.
//   - [Sink]: append-only destination (memory, channel, JSON lines, SQL).
//   - [Recorder]: stamps entries and appends them synchronously; a sink
//     failure is reported to a callback and never returned.
//   - [Dispatcher]: optional bounded async relay with drop counting.
//
// This package does not decide which attempts to record; the engine does.
package audit
