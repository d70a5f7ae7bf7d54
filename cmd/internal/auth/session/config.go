package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EntryStatus is the account-creation policy for one identifier field.
type EntryStatus struct {
	Required bool
	Unique   bool
}

// Config defines the account policy of the session subsystem.
//
// Entry statuses are evaluated at account creation only. Token lifetimes belong to the
// token codec.
type Config struct {
	Username    EntryStatus
	Email       EntryStatus
	PhoneNumber EntryStatus

	// RefreshMinInterval throttles refresh per session. Zero disables the throttle.
	RefreshMinInterval time.Duration
}

// DefaultConfig returns unique optional usernames and emails, and optional
// non-unique phone numbers.
func DefaultConfig() Config {
	return Config{
		Username:    EntryStatus{Required: false, Unique: true},
		Email:       EntryStatus{Required: false, Unique: true},
		PhoneNumber: EntryStatus{Required: false, Unique: false},
	}
}

// LoadConfigFromEnv loads account policy from environment variables.
//
// Optional (booleans per strconv.ParseBool, durations as Go duration strings):
//   - AUTHKIT_USERNAME_REQUIRED, AUTHKIT_USERNAME_UNIQUE
//   - AUTHKIT_EMAIL_REQUIRED, AUTHKIT_EMAIL_UNIQUE
//   - AUTHKIT_PHONE_REQUIRED, AUTHKIT_PHONE_UNIQUE
//   - AUTHKIT_REFRESH_MIN_INTERVAL
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	flags := []struct {
		key string
		dst *bool
	}{
		{"AUTHKIT_USERNAME_REQUIRED", &cfg.Username.Required},
		{"AUTHKIT_USERNAME_UNIQUE", &cfg.Username.Unique},
		{"AUTHKIT_EMAIL_REQUIRED", &cfg.Email.Required},
		{"AUTHKIT_EMAIL_UNIQUE", &cfg.Email.Unique},
		{"AUTHKIT_PHONE_REQUIRED", &cfg.PhoneNumber.Required},
		{"AUTHKIT_PHONE_UNIQUE", &cfg.PhoneNumber.Unique},
	}
	for _, f := range flags {
		v := strings.TrimSpace(os.Getenv(f.key))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		*f.dst = b
	}

	if v := strings.TrimSpace(os.Getenv("AUTHKIT_REFRESH_MIN_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshMinInterval = d
	}

	// A login needs at least one identifier that can be looked up.
	if !cfg.Username.Required && !cfg.Email.Required && !cfg.PhoneNumber.Required &&
		!cfg.Username.Unique && !cfg.Email.Unique && !cfg.PhoneNumber.Unique {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
