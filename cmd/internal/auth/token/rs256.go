package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type rs256Signer struct {
	keys *KeySet
}

func (s rs256Signer) method() jwt.SigningMethod { return jwt.SigningMethodRS256 }

func (s rs256Signer) signingKey() (string, any, error) {
	return s.keys.signingKey()
}

func (s rs256Signer) verificationKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header[headerKeyID].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid header", errUnknownKey)
	}
	return s.keys.PublicKey(kid)
}

// NewRS256 returns a codec signing with the active key of keys and verifying with any
// registered key named by the token's kid header.
func NewRS256(cfg Config, keys *KeySet, opts ...Option) (*JWTCodec, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: nil key set", ErrConfig)
	}
	return newJWTCodec(cfg, rs256Signer{keys: keys}, opts)
}
