package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"strings"
)

const resetTokenSize = 32

var errBadToken = errors.New("malformed token")

// NewOTP draws a zero-padded numeric code of the given length from r.
// A nil r means crypto/rand.
func NewOTP(r io.Reader, digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}
	if r == nil {
		r = rand.Reader
	}

	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// IsNumeric reports whether s is exactly n ASCII digits.
func IsNumeric(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NewResetToken returns an opaque base64url token carrying 256 random bits.
func NewResetToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var raw [resetTokenSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DigestResetToken maps a reset token to its storage key. Tokens that could
// not have come from NewResetToken are rejected without touching storage.
func DigestResetToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != resetTokenSize {
		return "", errBadToken
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
