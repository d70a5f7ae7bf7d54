package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	argon2Version = 19 // argon2.Version is 0x13 (19)

	saltInfo = "authkit/password-salt/v1"
)

// Hasher produces deterministic Argon2id digests. It satisfies the session hash port.
type Hasher struct {
	cfg  Config
	salt []byte
}

// NewHasher derives the deployment salt from cfg.Pepper.
func NewHasher(cfg Config) (*Hasher, error) {
	if len(cfg.Pepper) == 0 {
		return nil, ErrPepperMissing
	}
	if cfg.Params.SaltLength < 8 || cfg.Params.SaltLength > 64 {
		return nil, fmt.Errorf("salt length %d out of range [8..64]", cfg.Params.SaltLength)
	}

	salt := make([]byte, cfg.Params.SaltLength)
	kdf := hkdf.New(sha256.New, cfg.Pepper, nil, []byte(saltInfo))
	if _, err := io.ReadFull(kdf, salt); err != nil {
		return nil, fmt.Errorf("derive salt: %w", err)
	}

	return &Hasher{cfg: cfg, salt: salt}, nil
}

// Validate applies the configured password policy.
func (h *Hasher) Validate(password string) error {
	return h.cfg.Validate(password)
}

// Hash returns the encoded Argon2id digest of password.
// Equal inputs always produce equal outputs for the same configuration.
func (h *Hasher) Hash(password string) string {
	p := h.cfg.Params
	key := argon2.IDKey([]byte(password), h.salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
	return encode(p, h.salt, key)
}

// Match reports whether encoded is the digest of password under this hasher's
// configuration. It is equivalent to Hash(password) == encoded, compared in constant time.
//
// The digest depends on the pepper and on every cost parameter, so changing either
// requires re-hashing stored passwords.
func (h *Hasher) Match(password, encoded string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(password)), []byte(encoded)) == 1
}

func encode(p Argon2idParams, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		p.MemoryKiB,
		p.Iterations,
		p.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	)
}
