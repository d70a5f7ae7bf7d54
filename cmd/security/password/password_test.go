package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	cfg.Pepper = []byte("test-pepper")
	return cfg
}

func mustHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHash_Deterministic(t *testing.T) {
	h := mustHasher(t, testConfig())

	a := h.Hash("this is a strong password 123!")
	b := h.Hash("this is a strong password 123!")
	if a != b {
		t.Fatalf("expected equal digests, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %s", a)
	}
	if a == h.Hash("another password") {
		t.Fatalf("different passwords must not collide")
	}
}

func TestHash_PepperChangesDigest(t *testing.T) {
	c1 := testConfig()
	c2 := testConfig()
	c2.Pepper = []byte("other-pepper")

	if mustHasher(t, c1).Hash("pw") == mustHasher(t, c2).Hash("pw") {
		t.Fatalf("expected different digests for different peppers")
	}
}

func TestMatch(t *testing.T) {
	h := mustHasher(t, testConfig())
	enc := h.Hash("correct horse battery staple")

	if !h.Match("correct horse battery staple", enc) {
		t.Fatalf("expected match")
	}
	if h.Match("wrong password", enc) {
		t.Fatalf("expected mismatch")
	}
	if h.Match("anything", "not-a-hash") {
		t.Fatalf("malformed digest must not match")
	}
}

func TestMatch_RejectsOtherCost(t *testing.T) {
	oldCfg := testConfig()
	newCfg := testConfig()
	newCfg.Params.Iterations = 2

	enc := mustHasher(t, oldCfg).Hash("rotating costs")
	if mustHasher(t, newCfg).Match("rotating costs", enc) {
		t.Fatalf("digest made with other cost parameters must not match")
	}
}

func TestMatch_EquivalentToHash(t *testing.T) {
	h := mustHasher(t, testConfig())
	for _, pw := range []string{"", "pw", "correct horse battery staple"} {
		for _, enc := range []string{h.Hash(pw), h.Hash(pw + "x"), "not-a-hash", ""} {
			if got, want := h.Match(pw, enc), h.Hash(pw) == enc; got != want {
				t.Fatalf("Match(%q, %q) = %v, Hash equality = %v", pw, enc, got, want)
			}
		}
	}
}

func TestHash_EqualConfigEqualDigest(t *testing.T) {
	a := mustHasher(t, testConfig())
	b := mustHasher(t, testConfig())
	if a.Hash("shared across nodes") != b.Hash("shared across nodes") {
		t.Fatalf("hashers with equal config must produce equal digests")
	}
}

func TestDefaultConfig_ParallelismIsFixed(t *testing.T) {
	if got := DefaultConfig().Params.Parallelism; got != DefaultParallelism {
		t.Fatalf("expected parallelism %d, got %d", DefaultParallelism, got)
	}
}

func TestNewHasher_RequiresPepper(t *testing.T) {
	cfg := testConfig()
	cfg.Pepper = nil
	if _, err := NewHasher(cfg); err != ErrPepperMissing {
		t.Fatalf("expected ErrPepperMissing, got %v", err)
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.RejectVeryWeak = true
	cfg.Policy.MinLength = 8

	for _, pw := range []string{"password", "11111111", "aaaaaaaaaa", "QWERTY123", "12345678901"} {
		if err := cfg.Validate(pw); err != ErrWeakPassword {
			t.Fatalf("Validate(%q): expected ErrWeakPassword, got %v", pw, err)
		}
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
