// Package kvstore defines the TTL key-value contract used for short-lived
// authentication secrets, with a Redis implementation for shared deployments
// and an in-process implementation for single-node use and tests.
//
// Every Store provides GetAndDelete as one indivisible operation. Single-use
// secrets (MFA codes, reset tokens) are consumed only through it, so two
// concurrent consumers of the same key can never both observe the value.
package kvstore
