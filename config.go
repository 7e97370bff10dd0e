package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/password"
)

// Config is the full engine configuration. Build takes a deep copy; mutating
// a Config after Build has no effect on the Engine.
type Config struct {
	JWT           JWTConfig           `toml:"jwt"`
	Password      PasswordConfig      `toml:"password"`
	Policy        PolicyConfig        `toml:"policy"`
	MFA           MFAConfig           `toml:"mfa"`
	PasswordReset PasswordResetConfig `toml:"password_reset"`
	Account       AccountConfig       `toml:"account"`
	Audit         AuditConfig         `toml:"audit"`
	Metrics       MetricsConfig       `toml:"metrics"`
	RateLimit     RateLimitConfig     `toml:"rate_limit"`
	Redis         RedisConfig         `toml:"redis"`
	Database      DatabaseConfig      `toml:"database"`
	// KeyPrefix namespaces every TTL store key written by the engine.
	KeyPrefix string `toml:"key_prefix"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the signing algorithm, key material and token lifetimes.
// For hs256 PrivateKey is the shared secret.
type JWTConfig struct {
	AccessTTL     time.Duration `toml:"access_ttl"`
	RefreshTTL    time.Duration `toml:"refresh_ttl"`
	SigningMethod string        `toml:"signing_method"` // "hs256" (default) or "ed25519"
	PrivateKey    []byte        `toml:"-"`
	PublicKey     []byte        `toml:"-"`
	Issuer        string        `toml:"issuer"`
	Audience      string        `toml:"audience"`
	Leeway        time.Duration `toml:"leeway"`
	KeyID         string        `toml:"key_id"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters. Memory is in KiB.
type PasswordConfig struct {
	Memory           uint32 `toml:"memory"`
	Time             uint32 `toml:"time"`
	Parallelism      uint8  `toml:"parallelism"`
	SaltLength       uint32 `toml:"salt_length"`
	KeyLength        uint32 `toml:"key_length"`
	MaxPasswordBytes int    `toml:"max_password_bytes"`
	// UpgradeOnLogin re-hashes bcrypt and weaker argon2id hashes after a
	// successful login. Legacy plaintext is always migrated.
	UpgradeOnLogin bool `toml:"upgrade_on_login"`
}

// PolicyConfig tunes the password strength policy.
type PolicyConfig struct {
	MinLength         int      `toml:"min_length"`
	RecommendedLength int      `toml:"recommended_length"`
	Symbols           string   `toml:"symbols"`
	CommonSequences   []string `toml:"common_sequences"`
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig holds challenge lifetimes.
type MFAConfig struct {
	SetupTTL time.Duration `toml:"setup_ttl"`
	LoginTTL time.Duration `toml:"login_ttl"`
	// ReturnSetupCode also returns the setup code to the authenticated caller
	// of SetupMFA. Login codes are only ever delivered through the Notifier.
	ReturnSetupCode bool `toml:"return_setup_code"`
}

// PasswordResetConfig holds the reset token lifetime.
type PasswordResetConfig struct {
	TTL time.Duration `toml:"ttl"`
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole string `toml:"default_role"`
	// ValidateUniqueID enforces the national id check digits on Register.
	ValidateUniqueID bool `toml:"validate_unique_id"`
	// RequireUniqueID rejects registrations without a unique id.
	RequireUniqueID bool `toml:"require_unique_id"`
}

// AuditConfig controls login audit delivery. Async routes entries through a
// bounded queue; the default records synchronously.
type AuditConfig struct {
	Async      bool `toml:"async"`
	BufferSize int  `toml:"buffer_size"`
	DropIfFull bool `toml:"drop_if_full"`
}

// MetricsConfig enables the in-process counters and the Authenticate
// latency histogram.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms"`
}

// RateLimitConfig is consumed by the limiter package constructors. A zero
// limit disables throttling for that action.
type RateLimitConfig struct {
	Window        time.Duration `toml:"window"`
	Login         int           `toml:"login"`
	Register      int           `toml:"register"`
	PasswordReset int           `toml:"password_reset"`
}

/*
====================================
BACKEND CONFIG
====================================
*/

// RedisConfig is read by binaries that dial Redis themselves. The engine
// only ever receives a ready client.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// DatabaseConfig is read by binaries that open the Postgres repository.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the recommended settings. A signing key must still
// be supplied.
func DefaultConfig() Config {
	policy := password.DefaultPolicy()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			UpgradeOnLogin:   true,
		},
		Policy: PolicyConfig{
			MinLength:         policy.MinLength,
			RecommendedLength: policy.RecommendedLength,
			Symbols:           policy.Symbols,
			CommonSequences:   policy.CommonSequences,
		},
		MFA: MFAConfig{
			SetupTTL: 10 * time.Minute,
			LoginTTL: 5 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TTL: time.Hour,
		},
		Account: AccountConfig{
			DefaultRole:      "user",
			ValidateUniqueID: true,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		RateLimit: RateLimitConfig{
			Window:        time.Minute,
			Login:         10,
			Register:      5,
			PasswordReset: 3,
		},
		KeyPrefix: "authcore",
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.Policy.CommonSequences != nil {
		out.Policy.CommonSequences = append([]string(nil), cfg.Policy.CommonSequences...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

func (c *Config) passwordPolicy() password.Policy {
	maxBytes := c.Password.MaxPasswordBytes
	if maxBytes <= 0 {
		maxBytes = password.DefaultMaxPasswordBytes
	}
	return password.Policy{
		MinLength:         c.Policy.MinLength,
		RecommendedLength: c.Policy.RecommendedLength,
		Symbols:           c.Policy.Symbols,
		CommonSequences:   c.Policy.CommonSequences,
		MaxBytes:          maxBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires a secret in JWT PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 secret must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Password
	if err := c.passwordConfig().Validate(); err != nil {
		return err
	}

	// Policy
	if c.Policy.MinLength < 1 {
		return errors.New("Policy MinLength must be >= 1")
	}
	if c.Policy.RecommendedLength < c.Policy.MinLength {
		return errors.New("Policy RecommendedLength must be >= MinLength")
	}
	if strings.TrimSpace(c.Policy.Symbols) == "" {
		return errors.New("Policy Symbols must not be empty")
	}

	// MFA
	if c.MFA.SetupTTL <= 0 || c.MFA.LoginTTL <= 0 {
		return errors.New("MFA SetupTTL and LoginTTL must be > 0")
	}

	// Password reset
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}

	// Account
	if n := len(strings.TrimSpace(c.Account.DefaultRole)); n != 0 && (n < 2 || n > 300) {
		return errors.New("Account DefaultRole must be 2..300 characters")
	}

	// Audit
	if c.Audit.Async && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 in async mode")
	}

	// Rate limit
	if c.RateLimit.Login < 0 || c.RateLimit.Register < 0 || c.RateLimit.PasswordReset < 0 {
		return errors.New("RateLimit limits must be >= 0")
	}
	if (c.RateLimit.Login > 0 || c.RateLimit.Register > 0 || c.RateLimit.PasswordReset > 0) && c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}

	if strings.TrimSpace(c.KeyPrefix) == "" {
		return errors.New("KeyPrefix must not be empty")
	}
	if strings.ContainsAny(c.KeyPrefix, " \t\r\n") {
		return errors.New("KeyPrefix must not contain whitespace")
	}
	return nil
}
