package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"authkit/cmd/internal/audit"
	"authkit/cmd/internal/auth/token"
	sectoken "authkit/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
//
// Fail-fast: a required HMAC key that is missing or short is an error, never a silent
// fallback to plain SHA-256.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	if _, err := sectoken.HMACKeyFromEnv(sectoken.MinHMACKeyBytes); err != nil {
		switch {
		case errors.Is(err, sectoken.ErrHMACKeyMissing):
			return errors.New("security policy: AUTHKIT_REQUIRE_TOKEN_HMAC=true but AUTHKIT_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, sectoken.ErrHMACKeyTooShort):
			return errors.New("security policy: AUTHKIT_REQUIRE_TOKEN_HMAC=true but AUTHKIT_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}

// NewCodec builds the token codec selected by cfg.TokenAlg.
func NewCodec(cfg Config) (token.Codec, error) {
	tcfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(strings.TrimSpace(cfg.TokenAlg)) {
	case "", "HS256":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("%w: AUTHKIT_JWT_SECRET is required for HS256", token.ErrConfig)
		}
		c, err := token.NewHS256(tcfg, []byte(cfg.JWTSecret))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "RS256":
		keys, err := loadKeySet(cfg)
		if err != nil {
			return nil, err
		}
		c, err := token.NewRS256(tcfg, keys)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown AUTHKIT_TOKEN_ALG %q", token.ErrConfig, cfg.TokenAlg)
	}
}

func loadKeySet(cfg Config) (*token.KeySet, error) {
	if cfg.RSAKeyFile == "" || cfg.RSAKeyID == "" {
		return nil, fmt.Errorf("%w: AUTHKIT_RSA_KEY_FILE and AUTHKIT_RSA_KEY_ID are required for RS256", token.ErrConfig)
	}
	raw, err := os.ReadFile(cfg.RSAKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read rsa key: %w", err)
	}
	key, err := token.ParsePrivateKeyPEM(string(raw))
	if err != nil {
		return nil, err
	}
	keys := token.NewKeySet()
	if err := keys.Add(cfg.RSAKeyID, key); err != nil {
		return nil, err
	}
	return keys, nil
}

// NewAuditConverter returns the raw-data converter for the audit log: gzip first, then
// sealing, each when configured.
func NewAuditConverter(cfg Config) (audit.DataConverter, error) {
	var convs []audit.DataConverter
	if cfg.AuditGzip {
		convs = append(convs, audit.GzipConverter{})
	}
	if cfg.AuditSealKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.AuditSealKey)
		if err != nil {
			return nil, fmt.Errorf("AUTHKIT_AUDIT_SEAL_KEY: %w", err)
		}
		seal, err := audit.NewSealConverter(key)
		if err != nil {
			return nil, err
		}
		convs = append(convs, seal)
	}
	if len(convs) == 0 {
		return audit.NopConverter{}, nil
	}
	return audit.Chain(convs[0], convs[1:]...), nil
}
