package authcore

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables applied on top of the TOML file by LoadConfig.
const (
	EnvJWTSecret   = "AUTHCORE_JWT_SECRET"
	EnvAccessTTL   = "AUTHCORE_ACCESS_TTL"
	EnvRefreshTTL  = "AUTHCORE_REFRESH_TTL"
	EnvRedisAddr   = "AUTHCORE_REDIS_ADDR"
	EnvDatabaseURL = "AUTHCORE_DATABASE_URL"
	// EnvLegacySecret is read when EnvJWTSecret is unset.
	EnvLegacySecret = "SECRET_KEY"
)

// keyFiles holds the file-only settings that never live in Config itself.
type keyFiles struct {
	JWT struct {
		Secret         string `toml:"secret"`
		PrivateKeyFile string `toml:"private_key_file"`
		PublicKeyFile  string `toml:"public_key_file"`
	} `toml:"jwt"`
}

// LoadConfig builds a Config from DefaultConfig, the TOML file at path (if
// path is non-empty), and environment overrides, then validates it.
// Durations in the file are strings such as "15m".
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.LookupEnv)
}

func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeConfig(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeConfig(data string, cfg *Config) error {
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return err
	}

	var keys keyFiles
	if _, err := toml.Decode(data, &keys); err != nil {
		return err
	}

	for _, k := range md.Undecoded() {
		switch k.String() {
		case "jwt.secret", "jwt.private_key_file", "jwt.public_key_file":
		default:
			return fmt.Errorf("unknown setting %q", k.String())
		}
	}

	if keys.JWT.Secret != "" {
		cfg.JWT.PrivateKey = []byte(keys.JWT.Secret)
	}
	if keys.JWT.PrivateKeyFile != "" {
		b, err := os.ReadFile(keys.JWT.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("read private key: %w", err)
		}
		cfg.JWT.PrivateKey = b
	}
	if keys.JWT.PublicKeyFile != "" {
		b, err := os.ReadFile(keys.JWT.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
		cfg.JWT.PublicKey = b
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		cfg.JWT.PrivateKey = []byte(v)
	} else if v, ok := lookup(EnvLegacySecret); ok && v != "" && len(cfg.JWT.PrivateKey) == 0 {
		cfg.JWT.PrivateKey = []byte(v)
	}

	for _, o := range []struct {
		name string
		dst  *time.Duration
	}{
		{EnvAccessTTL, &cfg.JWT.AccessTTL},
		{EnvRefreshTTL, &cfg.JWT.RefreshTTL},
	} {
		v, ok := lookup(o.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
		*o.dst = d
	}

	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Redis.Addr = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		cfg.Database.URL = v
	}
	return nil
}
