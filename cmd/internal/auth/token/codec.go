package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"authkit/cmd/identity/ids"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimSessionID           = "session_id"
	claimLoginAt             = "login_at"
	claimDeviceType          = "device_type"
	claimDeviceName          = "device_name"
	claimTokenType           = "token_type"
	claimEmailVerified       = "email_verified"
	claimPhoneNumberVerified = "phone_number_verified"

	headerKeyID = "kid"
)

// Codec builds, signs and verifies session tokens.
type Codec interface {
	// Build derives token data from a session; ExpiresAt = at + Lifetime(typ).
	Build(s Session, typ Type, at time.Time) Decoded
	// Encode signs d and tags the result with d.Type.
	Encode(d Decoded) (Encoded, error)
	// Decode verifies e and reconstructs its content.
	Decode(e Encoded) (Decoded, error)
	// Lifetime returns the configured lifetime of typ.
	Lifetime(typ Type) time.Duration
}

// BuildTokenData derives token data from a session. It is pure: no id is assigned and
// at is truncated to whole seconds, the resolution of iat/exp.
func BuildTokenData(s Session, typ Type, at time.Time, ttl time.Duration) Decoded {
	at = at.UTC().Truncate(time.Second)
	return Decoded{
		SessionID:           s.ID,
		Subject:             strconv.FormatInt(s.UserID, 10),
		LoginAt:             s.LoginAt.UTC(),
		DeviceType:          s.DeviceType,
		DeviceName:          s.DeviceName,
		Type:                typ,
		IssuedAt:            at,
		ExpiresAt:           at.Add(ttl),
		EmailVerified:       s.EmailVerified,
		PhoneNumberVerified: s.PhoneNumberVerified,
	}
}

type claims struct {
	jwt.RegisteredClaims
	SessionID           string  `json:"session_id"`
	LoginAt             string  `json:"login_at"`
	DeviceType          string  `json:"device_type,omitempty"`
	DeviceName          *string `json:"device_name,omitempty"`
	TokenType           string  `json:"token_type"`
	EmailVerified       string  `json:"email_verified,omitempty"`
	PhoneNumberVerified string  `json:"phone_number_verified,omitempty"`
}

// signer is the strategy that differs between HS256 and RS256.
type signer interface {
	method() jwt.SigningMethod
	signingKey() (kid string, key any, err error)
	verificationKey(t *jwt.Token) (any, error)
}

// JWTCodec implements Codec over a signing strategy.
type JWTCodec struct {
	cfg    Config
	signer signer
	now    func() time.Time
}

// Option configures a JWTCodec.
type Option func(*JWTCodec)

// WithClock overrides the time source used for exp/iat checks.
func WithClock(fn func() time.Time) Option {
	return func(c *JWTCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

func newJWTCodec(cfg Config, s signer, opts []Option) (*JWTCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &JWTCodec{cfg: cfg, signer: s, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Lifetime returns the configured lifetime of typ.
func (c *JWTCodec) Lifetime(typ Type) time.Duration { return c.cfg.Lifetime(typ) }

// Build derives token data using the configured lifetime.
func (c *JWTCodec) Build(s Session, typ Type, at time.Time) Decoded {
	return BuildTokenData(s, typ, at, c.cfg.Lifetime(typ))
}

// Encode signs d. A jti is generated when d.ID is empty.
func (c *JWTCodec) Encode(d Decoded) (Encoded, error) {
	if d.Type != TypeAccess && d.Type != TypeRefresh {
		return Encoded{}, fmt.Errorf("%w: unknown token type", ErrInvalidToken)
	}

	id := d.ID
	if id == "" {
		var err error
		if id, err = ids.NewULID(d.IssuedAt); err != nil {
			return Encoded{}, err
		}
	}

	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   d.Subject,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(d.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(d.ExpiresAt),
		},
		SessionID:           strconv.FormatInt(d.SessionID, 10),
		LoginAt:             d.LoginAt.UTC().Format(time.RFC3339Nano),
		DeviceName:          d.DeviceName,
		TokenType:           d.Type.String(),
		EmailVerified:       strconv.FormatBool(d.EmailVerified),
		PhoneNumberVerified: strconv.FormatBool(d.PhoneNumberVerified),
	}
	if c.cfg.Audience != "" {
		cl.Audience = jwt.ClaimStrings{c.cfg.Audience}
	}
	if d.DeviceType != nil {
		cl.DeviceType = string(*d.DeviceType)
	}

	kid, key, err := c.signer.signingKey()
	if err != nil {
		return Encoded{}, err
	}

	t := jwt.NewWithClaims(c.signer.method(), cl)
	if kid != "" {
		t.Header[headerKeyID] = kid
	}

	signed, err := t.SignedString(key)
	if err != nil {
		return Encoded{}, fmt.Errorf("sign token: %w", err)
	}
	return Encoded{Type: d.Type, Value: signed}, nil
}

// Decode verifies signature, issuer, audience and expiry, then rebuilds the session claims.
// The token_type claim must agree with e.Type.
func (c *JWTCodec) Decode(e Encoded) (Decoded, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(c.cfg.Leeway),
		jwt.WithTimeFunc(c.now),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}
	if c.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(c.cfg.Audience))
	}

	var cl claims
	if _, err := jwt.ParseWithClaims(strings.TrimSpace(e.Value), &cl, c.signer.verificationKey, opts...); err != nil {
		return Decoded{}, classify(err)
	}

	return fromClaims(cl, e.Type)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

func fromClaims(cl claims, want Type) (Decoded, error) {
	invalid := func(msg string) (Decoded, error) {
		return Decoded{}, fmt.Errorf("%w: %s", ErrInvalidToken, msg)
	}

	typ, err := ParseType(cl.TokenType)
	if err != nil {
		return invalid(claimTokenType)
	}
	if typ != want {
		return invalid("token type mismatch")
	}

	if cl.Subject == "" {
		return invalid("missing subject")
	}

	sid, err := strconv.ParseInt(cl.SessionID, 10, 64)
	if err != nil {
		return invalid(claimSessionID)
	}

	loginAt, err := time.Parse(time.RFC3339Nano, cl.LoginAt)
	if err != nil {
		return invalid(claimLoginAt)
	}

	var device *DeviceType
	if cl.DeviceType != "" {
		d, err := ParseDeviceType(cl.DeviceType)
		if err != nil {
			return invalid(claimDeviceType)
		}
		device = &d
	}

	emailVerified, err := optionalBool(cl.EmailVerified)
	if err != nil {
		return invalid(claimEmailVerified)
	}
	phoneVerified, err := optionalBool(cl.PhoneNumberVerified)
	if err != nil {
		return invalid(claimPhoneNumberVerified)
	}

	if cl.IssuedAt == nil || cl.ExpiresAt == nil {
		return invalid("missing iat/exp")
	}

	return Decoded{
		ID:                  cl.ID,
		SessionID:           sid,
		Subject:             cl.Subject,
		LoginAt:             loginAt.UTC(),
		DeviceType:          device,
		DeviceName:          cl.DeviceName,
		Type:                typ,
		IssuedAt:            cl.IssuedAt.UTC(),
		ExpiresAt:           cl.ExpiresAt.UTC(),
		EmailVerified:       emailVerified,
		PhoneNumberVerified: phoneVerified,
	}, nil
}

// optionalBool defaults an absent claim to false.
func optionalBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
