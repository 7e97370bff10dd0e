// Package jwt issues and verifies the typed access and refresh tokens used by
// authcore. Both token kinds carry the account email as subject and a "type"
// claim; a token of one kind never verifies as the other.
//
// There is no revocation list: a correctly signed, unexpired token is accepted
// until its own expiry.
package jwt
