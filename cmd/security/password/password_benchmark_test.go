package password

import "testing"

func BenchmarkHash_DefaultConfig(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Pepper = []byte("bench-pepper")
	h, err := NewHasher(cfg)
	if err != nil {
		b.Fatalf("NewHasher: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Hash("this is a strong password 123!")
	}
}

func BenchmarkMatch_DefaultConfig(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Pepper = []byte("bench-pepper")
	h, err := NewHasher(cfg)
	if err != nil {
		b.Fatalf("NewHasher: %v", err)
	}
	enc := h.Hash("this is a strong password 123!")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !h.Match("this is a strong password 123!", enc) {
			b.Fatalf("Match failed")
		}
	}
}
