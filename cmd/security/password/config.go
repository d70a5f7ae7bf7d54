package password

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// PepperEnvKey names the env var holding the salt-derivation secret.
// #nosec G101 -- not a credential; it's an environment variable name.
const PepperEnvKey = "AUTHKIT_PASSWORD_PEPPER"

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation at account creation.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy

	// Pepper seeds the deterministic salt. Changing it invalidates every stored digest.
	Pepper []byte
}

// DefaultParallelism is fixed rather than taken from the host CPU count: it is part of
// the digest, and every node of a deployment must produce the same one.
const DefaultParallelism = 1

// DefaultConfig returns interactive-login Argon2id costs and a permissive length policy.
// Pepper is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: DefaultParallelism,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - AUTHKIT_PASSWORD_PEPPER
// - AUTHKIT_PASSWORD_MIN_LEN
// - AUTHKIT_PASSWORD_MAX_LEN
// - AUTHKIT_PASSWORD_REJECT_VERY_WEAK (true/false)
// - AUTHKIT_ARGON2_MEMORY_KIB
// - AUTHKIT_ARGON2_ITERATIONS
// - AUTHKIT_ARGON2_PARALLELISM
// - AUTHKIT_ARGON2_SALT_LEN
// - AUTHKIT_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv(PepperEnvKey)); v != "" {
		cfg.Pepper = []byte(v)
	}

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"AUTHKIT_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"AUTHKIT_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		if v, ok := os.LookupEnv(f.key); ok {
			n, err := atoiRange(v, f.min, f.max)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = n
		}
	}

	if v, ok := os.LookupEnv("AUTHKIT_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("AUTHKIT_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"AUTHKIT_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"AUTHKIT_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"AUTHKIT_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"AUTHKIT_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		if v, ok := os.LookupEnv(f.key); ok {
			u, err := atou32(v, f.min, f.max)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = u
		}
	}

	if v, ok := os.LookupEnv("AUTHKIT_ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("AUTHKIT_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded by atou32 above.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
