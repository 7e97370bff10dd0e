// Package middleware adapts authcore.Engine to net/http.
//
// Guard requires a Bearer access token, resolves the caller with
// Engine.GetProfile and stores the profile in the request context.
// ClientInfo copies the caller's address and user agent into the context so
// login audit entries carry them.
//
// The package makes no decisions of its own; every pass/reject comes from
// the Engine.
package middleware
