package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("AUTHKIT_T_STR", "  value ")
	t.Setenv("AUTHKIT_T_BOOL", "nope")
	t.Setenv("AUTHKIT_T_INT", "-3")
	t.Setenv("AUTHKIT_T_INT32", "7")
	t.Setenv("AUTHKIT_T_DUR", "2s")

	if got := EnvString("AUTHKIT_T_STR", "def"); got != "value" {
		t.Fatalf("EnvString=%q", got)
	}
	if got := EnvString("AUTHKIT_T_UNSET", "def"); got != "def" {
		t.Fatalf("EnvString default=%q", got)
	}
	if got := EnvBool("AUTHKIT_T_BOOL", true); !got {
		t.Fatalf("EnvBool should fall back on invalid input")
	}
	if got := EnvInt("AUTHKIT_T_INT", 5); got != 5 {
		t.Fatalf("EnvInt should reject non-positive, got %d", got)
	}
	if got := EnvInt32("AUTHKIT_T_INT32", 1); got != 7 {
		t.Fatalf("EnvInt32=%d", got)
	}
	if got := EnvDuration("AUTHKIT_T_DUR", time.Second); got != 2*time.Second {
		t.Fatalf("EnvDuration=%v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUTHKIT_T_DOTENV=from-file\nAUTHKIT_T_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("AUTHKIT_T_PRESET", "from-env")
	t.Setenv("AUTHKIT_T_DOTENV", "")
	os.Unsetenv("AUTHKIT_T_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("AUTHKIT_T_DOTENV"); got != "from-file" {
		t.Fatalf("AUTHKIT_T_DOTENV=%q", got)
	}
	if got := os.Getenv("AUTHKIT_T_PRESET"); got != "from-env" {
		t.Fatalf("existing variables must win, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"AUTHKIT_LOG_LEVEL", "AUTHKIT_TOKEN_ALG", "AUTHKIT_DB_MAX_CONNS", "AUTHKIT_DB_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.LogLevel != "info" || cfg.TokenAlg != "HS256" || cfg.DBMaxConns != 10 || cfg.DBTimeout != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
