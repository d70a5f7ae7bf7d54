package app

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"authkit/cmd/internal/auth/token"
	sectoken "authkit/cmd/security/token"
)

func TestValidateSecurityConfig(t *testing.T) {
	if err := ValidateSecurityConfig(Config{}); err != nil {
		t.Fatalf("policy off: %v", err)
	}

	t.Setenv(sectoken.HMACEnvKey, "")
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	t.Setenv(sectoken.HMACEnvKey, "short")
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short key error, got %v", err)
	}

	t.Setenv(sectoken.HMACEnvKey, strings.Repeat("k", 32))
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err != nil {
		t.Fatalf("valid key: %v", err)
	}
}

func TestNewCodec_HS256(t *testing.T) {
	if _, err := NewCodec(Config{TokenAlg: "HS256"}); !errors.Is(err, token.ErrConfig) {
		t.Fatalf("missing secret: expected ErrConfig, got %v", err)
	}
	if _, err := NewCodec(Config{TokenAlg: "HS256", JWTSecret: "short"}); err == nil {
		t.Fatalf("short secret must be rejected")
	}
	if _, err := NewCodec(Config{TokenAlg: "ES256", JWTSecret: strings.Repeat("s", 32)}); !errors.Is(err, token.ErrConfig) {
		t.Fatalf("unknown alg: expected ErrConfig, got %v", err)
	}

	c, err := NewCodec(Config{TokenAlg: "hs256", JWTSecret: strings.Repeat("s", 32)})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if c.Lifetime(token.TypeAccess) != token.DefaultConfig().AccessTTL {
		t.Fatalf("unexpected access lifetime %v", c.Lifetime(token.TypeAccess))
	}
}

func TestNewCodec_RS256FromFile(t *testing.T) {
	if _, err := NewCodec(Config{TokenAlg: "RS256"}); !errors.Is(err, token.ErrConfig) {
		t.Fatalf("missing key file: expected ErrConfig, got %v", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pemData, err := token.EncodePrivateKeyPEM(key)
	if err != nil {
		t.Fatalf("EncodePrivateKeyPEM: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signing.pem")
	if err := os.WriteFile(path, []byte(pemData), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewCodec(Config{TokenAlg: "RS256", RSAKeyFile: path, RSAKeyID: "k1"}); err != nil {
		t.Fatalf("NewCodec RS256: %v", err)
	}
	if _, err := NewCodec(Config{TokenAlg: "RS256", RSAKeyFile: path + ".missing", RSAKeyID: "k1"}); err == nil {
		t.Fatalf("expected error for missing key file")
	}
}

func TestNewAuditConverter(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", 32)))

	for _, cfg := range []Config{{}, {AuditGzip: true}, {AuditSealKey: key}, {AuditGzip: true, AuditSealKey: key}} {
		conv, err := NewAuditConverter(cfg)
		if err != nil {
			t.Fatalf("NewAuditConverter(%+v): %v", cfg, err)
		}
		out, err := conv.Convert("edit:comment@9")
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		back, err := conv.Unconvert(out)
		if err != nil || back != "edit:comment@9" {
			t.Fatalf("round trip gave %q, %v", back, err)
		}
	}

	if _, err := NewAuditConverter(Config{AuditSealKey: "not base64!"}); err == nil {
		t.Fatalf("expected invalid key encoding error")
	}
	if _, err := NewAuditConverter(Config{AuditSealKey: base64.StdEncoding.EncodeToString([]byte("short"))}); err == nil {
		t.Fatalf("expected short key error")
	}
}
