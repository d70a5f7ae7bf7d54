package audit

import (
	"bytes"
	"compress/gzip"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// DataConverter transforms raw audit payloads for storage.
// Unconvert(Convert(s)) must return s.
type DataConverter interface {
	Convert(raw string) (string, error)
	Unconvert(converted string) (string, error)
}

// NopConverter stores data unchanged.
type NopConverter struct{}

func (NopConverter) Convert(raw string) (string, error)         { return raw, nil }
func (NopConverter) Unconvert(converted string) (string, error) { return converted, nil }

type chain []DataConverter

// Chain applies base first and each of next in order on Convert, and undoes them in
// reverse on Unconvert.
func Chain(base DataConverter, next ...DataConverter) DataConverter {
	c := make(chain, 0, 1+len(next))
	for _, dc := range append([]DataConverter{base}, next...) {
		if dc != nil {
			c = append(c, dc)
		}
	}
	return c
}

func (c chain) Convert(raw string) (string, error) {
	var err error
	for _, dc := range c {
		if raw, err = dc.Convert(raw); err != nil {
			return "", err
		}
	}
	return raw, nil
}

func (c chain) Unconvert(converted string) (string, error) {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		if converted, err = c[i].Unconvert(converted); err != nil {
			return "", err
		}
	}
	return converted, nil
}

// GzipConverter stores data as base64 of its gzip stream. Empty input stays empty.
type GzipConverter struct {
	Level int
}

func (g GzipConverter) Convert(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(zw, raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (GzipConverter) Unconvert(converted string) (string, error) {
	if converted == "" {
		return "", nil
	}
	b, err := base64.StdEncoding.DecodeString(converted)
	if err != nil {
		return "", fmt.Errorf("gzip converter: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("gzip converter: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("gzip converter: %w", err)
	}
	return string(out), nil
}

// ErrSealedData is returned when sealed data fails to open.
var ErrSealedData = errors.New("sealed audit data cannot be opened")

// SealConverter encrypts data with XChaCha20-Poly1305 and stores base64 of
// nonce||ciphertext. Empty input stays empty.
type SealConverter struct {
	aead cipher.AEAD
}

// NewSealConverter takes a 32-byte key.
func NewSealConverter(key []byte) (*SealConverter, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("seal converter: %w", err)
	}
	return &SealConverter{aead: aead}, nil
}

func (s *SealConverter) Convert(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(raw)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(raw), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *SealConverter) Unconvert(converted string) (string, error) {
	if converted == "" {
		return "", nil
	}
	b, err := base64.StdEncoding.DecodeString(converted)
	if err != nil || len(b) < s.aead.NonceSize() {
		return "", ErrSealedData
	}
	nonce, ct := b[:s.aead.NonceSize()], b[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrSealedData
	}
	return string(plain), nil
}
