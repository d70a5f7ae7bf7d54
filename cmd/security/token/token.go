package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "AUTHKIT_TOKEN_HMAC_KEY"

	// MinHMACKeyBytes is the smallest key accepted when HMAC is required.
	MinHMACKeyBytes = 32
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Hasher digests issued tokens. It satisfies the session hash port.
//
// A Hasher with a nil key uses plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns an HMAC hasher when key is non-empty and a SHA-256 hasher otherwise.
func NewHasher(key []byte) *Hasher {
	if len(key) == 0 {
		return &Hasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Hasher{key: k}
}

// NewHasherFromEnv builds a Hasher from AUTHKIT_TOKEN_HMAC_KEY.
//
// When require is true the key must be present and at least MinHMACKeyBytes long;
// otherwise a missing key falls back to SHA-256.
func NewHasherFromEnv(require bool) (*Hasher, error) {
	minBytes := 0
	if require {
		minBytes = MinHMACKeyBytes
	}
	key, err := HMACKeyFromEnv(minBytes)
	switch {
	case err == nil:
		return NewHasher(key), nil
	case err == ErrHMACKeyMissing && !require:
		return NewHasher(nil), nil
	default:
		return nil, err
	}
}

// Keyed reports whether the hasher runs in HMAC mode.
func (h *Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the hex digest of value.
func (h *Hasher) Hash(value string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(value)
	}
	return HashHMACSHA256Hex(value, h.key)
}

// Match reports whether hash is the digest of original, in constant time.
func (h *Hasher) Match(original, hash string) bool {
	got := h.Hash(original)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}
