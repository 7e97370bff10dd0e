package password

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUpgrade wraps a failure to compute the replacement hash after a
// successful match. The match itself still stands.
var ErrUpgrade = errors.New("password: upgrade hash failed")

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Hasher hashes new passwords with argon2id and verifies every stored
// credential shape the user directory may still contain.
type Hasher struct {
	argon *Argon2
}

// Check is the outcome of comparing a submitted password with a stored credential.
type Check struct {
	Match bool
	// NewHash is set when the caller should persist a replacement credential.
	NewHash string
	// Legacy is true when the stored value was un-hashed plaintext.
	Legacy bool
}

// NewHasher returns a Hasher producing argon2id hashes with cfg.
func NewHasher(cfg Config) (*Hasher, error) {
	argon, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: argon}, nil
}

// Hash returns a salted argon2id hash. It fails only for empty input or a
// broken random source.
func (h *Hasher) Hash(plaintext string) (string, error) {
	return h.argon.Hash(plaintext)
}

// Verify reports whether stored is a hash of plaintext. Legacy plaintext
// values never verify here; use Migrate for those.
func (h *Hasher) Verify(plaintext, stored string) (bool, error) {
	switch {
	case isArgon2(stored):
		return h.argon.Verify(plaintext, stored)
	case isBcrypt(stored):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("password: bcrypt: %w", err)
	default:
		return false, nil
	}
}

// IsLegacyPlaintext reports whether stored lacks every known hash prefix.
// An empty stored value is not treated as a credential at all.
func (h *Hasher) IsLegacyPlaintext(stored string) bool {
	return stored != "" && !isArgon2(stored) && !isBcrypt(stored)
}

// Migrate compares plaintext against a legacy un-hashed value. On an exact
// match it returns a fresh hash for the caller to write back.
func (h *Hasher) Migrate(plaintext, stored string) (bool, string, error) {
	if !h.IsLegacyPlaintext(stored) || plaintext == "" {
		return false, "", nil
	}
	if subtle.ConstantTimeCompare([]byte(plaintext), []byte(stored)) != 1 {
		return false, "", nil
	}

	hash, err := h.argon.Hash(plaintext)
	if err != nil {
		return true, "", fmt.Errorf("%w: %v", ErrUpgrade, err)
	}
	return true, hash, nil
}

// NeedsUpgrade is true for bcrypt hashes, legacy plaintext and argon2id
// hashes weaker than the current configuration.
func (h *Hasher) NeedsUpgrade(stored string) bool {
	switch {
	case isBcrypt(stored), h.IsLegacyPlaintext(stored):
		return true
	case isArgon2(stored):
		upgrade, err := h.argon.NeedsUpgrade(stored)
		return err == nil && upgrade
	}
	return false
}

// Check runs the full login comparison: legacy migration, hash verification
// and, when upgrade is set, re-hashing of outdated hashes.
func (h *Hasher) Check(plaintext, stored string, upgrade bool) (Check, error) {
	if h.IsLegacyPlaintext(stored) {
		ok, hash, err := h.Migrate(plaintext, stored)
		return Check{Match: ok, NewHash: hash, Legacy: true}, err
	}

	ok, err := h.Verify(plaintext, stored)
	if err != nil || !ok {
		return Check{}, err
	}
	if !upgrade || !h.NeedsUpgrade(stored) {
		return Check{Match: true}, nil
	}

	hash, err := h.argon.Hash(plaintext)
	if err != nil {
		return Check{Match: true}, fmt.Errorf("%w: %v", ErrUpgrade, err)
	}
	return Check{Match: true, NewHash: hash}, nil
}

func isBcrypt(stored string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}
