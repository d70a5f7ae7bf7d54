package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var errUnknownKey = errors.New("unknown key id")

// KeySet holds RSA keys addressed by key id.
//
// Exactly one private key is active for signing. Every registered key, active or not,
// verifies. Retiring a key removes it entirely, which invalidates the tokens it signed.
type KeySet struct {
	mu      sync.RWMutex
	private map[string]*rsa.PrivateKey
	public  map[string]*rsa.PublicKey
	active  string
}

// NewKeySet returns an empty key set.
func NewKeySet() *KeySet {
	return &KeySet{
		private: make(map[string]*rsa.PrivateKey),
		public:  make(map[string]*rsa.PublicKey),
	}
}

// Add registers a signing key. The first private key added becomes active.
func (ks *KeySet) Add(kid string, key *rsa.PrivateKey) error {
	kid = strings.TrimSpace(kid)
	if kid == "" || key == nil {
		return fmt.Errorf("%w: key id and key are required", ErrConfig)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.private[kid] = key
	ks.public[kid] = &key.PublicKey
	if ks.active == "" {
		ks.active = kid
	}
	return nil
}

// AddPublic registers a verification-only key.
func (ks *KeySet) AddPublic(kid string, key *rsa.PublicKey) error {
	kid = strings.TrimSpace(kid)
	if kid == "" || key == nil {
		return fmt.Errorf("%w: key id and key are required", ErrConfig)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.public[kid] = key
	return nil
}

// Generate creates and registers a fresh key with a random id and returns the id.
// The new key is activated.
func (ks *KeySet) Generate(bits int) (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", err
	}
	kid := uuid.NewString()
	if err := ks.Add(kid, key); err != nil {
		return "", err
	}
	if err := ks.Activate(kid); err != nil {
		return "", err
	}
	return kid, nil
}

// Activate makes kid the signing key. kid must have a private key.
func (ks *KeySet) Activate(kid string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, ok := ks.private[kid]; !ok {
		return fmt.Errorf("%w: %s", errUnknownKey, kid)
	}
	ks.active = kid
	return nil
}

// Retire removes kid. The active key cannot be retired.
func (ks *KeySet) Retire(kid string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if kid == ks.active {
		return fmt.Errorf("%w: cannot retire the active key", ErrConfig)
	}
	delete(ks.private, kid)
	delete(ks.public, kid)
	return nil
}

// ActiveKeyID returns the id of the signing key, or "" when none is set.
func (ks *KeySet) ActiveKeyID() string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.active
}

func (ks *KeySet) signingKey() (string, *rsa.PrivateKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	key, ok := ks.private[ks.active]
	if !ok {
		return "", nil, fmt.Errorf("%w: no active signing key", ErrConfig)
	}
	return ks.active, key, nil
}

// PublicKey returns the verification key registered under kid.
func (ks *KeySet) PublicKey(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	key, ok := ks.public[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownKey, kid)
	}
	return key, nil
}

// ParsePrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemData)))
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}

// ParsePublicKeyPEM parses a PKIX or PKCS#1 RSA public key.
func ParsePublicKeyPEM(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemData)))
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not an RSA public key")
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported public key type %s", block.Type)
	}
}

// EncodePrivateKeyPEM renders key as a PKCS#8 PEM block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// EncodePublicKeyPEM renders key as a PKIX PEM block.
func EncodePublicKeyPEM(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
