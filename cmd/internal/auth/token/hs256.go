package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the smallest accepted HS256 secret.
const MinSecretBytes = 32

type hs256Signer struct {
	secret []byte
}

func (s hs256Signer) method() jwt.SigningMethod { return jwt.SigningMethodHS256 }

func (s hs256Signer) signingKey() (string, any, error) { return "", s.secret, nil }

func (s hs256Signer) verificationKey(*jwt.Token) (any, error) { return s.secret, nil }

// NewHS256 returns a codec signing with a shared secret of at least MinSecretBytes.
func NewHS256(cfg Config, secret []byte, opts ...Option) (*JWTCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: HS256 secret must be at least %d bytes", ErrConfig, MinSecretBytes)
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return newJWTCodec(cfg, hs256Signer{secret: key}, opts)
}
