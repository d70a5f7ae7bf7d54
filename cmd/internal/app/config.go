package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string // "json" or "pretty"

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBTimeout   time.Duration

	// TokenAlg selects the JWT codec: "HS256" (JWTSecret) or "RS256" (RSAKeyFile, RSAKeyID).
	TokenAlg   string
	JWTSecret  string
	RSAKeyFile string
	RSAKeyID   string

	// Security policy:
	// If true, AUTHKIT_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and token hashing is HMAC-based.
	RequireTokenHMAC bool

	// Audit raw data is gzip-compressed and/or sealed with a base64 32-byte key before storage.
	AuditGzip    bool
	AuditSealKey string
}

// LoadConfig loads Config from environment variables with defaults.
// Call LoadDotEnv first to pick up a .env file.
func LoadConfig() Config {
	return Config{
		LogLevel:  EnvString("AUTHKIT_LOG_LEVEL", "info"),
		LogFormat: EnvString("AUTHKIT_LOG_FORMAT", "json"),

		DatabaseURL: EnvString("AUTHKIT_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("AUTHKIT_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("AUTHKIT_DB_MIN_CONNS", 0),
		DBTimeout:   EnvDuration("AUTHKIT_DB_TIMEOUT", 3*time.Second),

		TokenAlg:   EnvString("AUTHKIT_TOKEN_ALG", "HS256"),
		JWTSecret:  EnvString("AUTHKIT_JWT_SECRET", ""),
		RSAKeyFile: EnvString("AUTHKIT_RSA_KEY_FILE", ""),
		RSAKeyID:   EnvString("AUTHKIT_RSA_KEY_ID", ""),

		RequireTokenHMAC: EnvBool("AUTHKIT_REQUIRE_TOKEN_HMAC", false),

		AuditGzip:    EnvBool("AUTHKIT_AUDIT_GZIP", false),
		AuditSealKey: EnvString("AUTHKIT_AUDIT_SEAL_KEY", ""),
	}
}
