package session

import (
	"errors"
	"testing"
	"time"
)

var policyEnvKeys = []string{
	"AUTHKIT_USERNAME_REQUIRED", "AUTHKIT_USERNAME_UNIQUE",
	"AUTHKIT_EMAIL_REQUIRED", "AUTHKIT_EMAIL_UNIQUE",
	"AUTHKIT_PHONE_REQUIRED", "AUTHKIT_PHONE_UNIQUE",
	"AUTHKIT_REFRESH_MIN_INTERVAL",
}

func clearPolicyEnv(t *testing.T) {
	t.Helper()
	for _, k := range policyEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearPolicyEnv(t)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if !cfg.Username.Unique || !cfg.Email.Unique || cfg.PhoneNumber.Unique {
		t.Fatalf("unexpected uniqueness defaults: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("AUTHKIT_EMAIL_REQUIRED", "true")
	t.Setenv("AUTHKIT_PHONE_UNIQUE", "1")
	t.Setenv("AUTHKIT_USERNAME_UNIQUE", "false")
	t.Setenv("AUTHKIT_REFRESH_MIN_INTERVAL", "30s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if !cfg.Email.Required || !cfg.PhoneNumber.Unique || cfg.Username.Unique {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RefreshMinInterval != 30*time.Second {
		t.Fatalf("RefreshMinInterval = %s", cfg.RefreshMinInterval)
	}
}

func TestLoadConfigFromEnv_InvalidBool(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("AUTHKIT_EMAIL_UNIQUE", "maybe")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv_NegativeInterval(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("AUTHKIT_REFRESH_MIN_INTERVAL", "-1s")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv_NoLookupIdentifier(t *testing.T) {
	clearPolicyEnv(t)
	t.Setenv("AUTHKIT_USERNAME_UNIQUE", "false")
	t.Setenv("AUTHKIT_EMAIL_UNIQUE", "false")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
