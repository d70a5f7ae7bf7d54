package token

import "errors"

var (
	// ErrInvalidSignature is returned when the signature does not verify, the signing
	// method is not allowed, or the key id is unknown.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrExpired is returned when the token's exp claim has passed.
	ErrExpired = errors.New("token expired")

	// ErrInvalidToken is returned for malformed tokens, wrong issuer/audience and
	// missing or inconsistent session claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token config")
)
