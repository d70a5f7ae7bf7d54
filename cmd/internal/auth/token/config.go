package token

import (
	"os"
	"strings"
	"time"
)

// Config controls token lifetimes and the standard claims checked on decode.
type Config struct {
	// Issuer is written to "iss" and required on decode when non-empty.
	Issuer string
	// Audience is written to "aud" and required on decode when non-empty.
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Leeway tolerates clock skew when checking exp and iat.
	Leeway time.Duration
}

// DefaultConfig returns 15 minute access and 15 day refresh lifetimes.
func DefaultConfig() Config {
	return Config{
		Issuer:     "authkit",
		Audience:   "authkit",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 15 * 24 * time.Hour,
		Leeway:     3 * time.Second,
	}
}

// LoadConfigFromEnv overlays environment variables on DefaultConfig.
//
// Optional (durations must be valid Go duration strings):
//   - AUTHKIT_JWT_ISSUER
//   - AUTHKIT_JWT_AUDIENCE
//   - AUTHKIT_ACCESS_TTL
//   - AUTHKIT_REFRESH_TTL
//   - AUTHKIT_JWT_LEEWAY
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("AUTHKIT_JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTHKIT_JWT_AUDIENCE")); v != "" {
		cfg.Audience = v
	}

	durations := []struct {
		key       string
		dst       *time.Duration
		allowZero bool
	}{
		{"AUTHKIT_ACCESS_TTL", &cfg.AccessTTL, false},
		{"AUTHKIT_REFRESH_TTL", &cfg.RefreshTTL, false},
		{"AUTHKIT_JWT_LEEWAY", &cfg.Leeway, true},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks lifetime invariants.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.Leeway < 0 {
		return ErrConfig
	}
	// Access tokens must be the short-lived half of the pair.
	if c.AccessTTL >= c.RefreshTTL {
		return ErrConfig
	}
	return nil
}

// Lifetime returns the configured lifetime of typ.
func (c Config) Lifetime(typ Type) time.Duration {
	if typ == TypeRefresh {
		return c.RefreshTTL
	}
	return c.AccessTTL
}
