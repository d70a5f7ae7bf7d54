package session

import (
	"time"

	"authkit/cmd/internal/auth/token"
)

// NewSessionID marks a DeviceSession that has not been persisted yet.
const NewSessionID int64 = -1

// Credential names the identifier used for a login lookup.
type Credential string

const (
	CredentialEmail       Credential = "email"
	CredentialUsername    Credential = "username"
	CredentialPhoneNumber Credential = "phone_number"
)

// Device describes the client opening a session.
type Device struct {
	Type *token.DeviceType
	Name *string
}

// DeviceSession is one login of one user on one device.
type DeviceSession struct {
	ID                  int64
	UserID              int64
	LoginAt             time.Time
	DeviceType          *token.DeviceType
	DeviceName          *string
	EmailVerified       bool
	PhoneNumberVerified bool
}

func (d DeviceSession) tokenSession() token.Session {
	return token.Session{
		ID:                  d.ID,
		UserID:              d.UserID,
		LoginAt:             d.LoginAt,
		DeviceType:          d.DeviceType,
		DeviceName:          d.DeviceName,
		EmailVerified:       d.EmailVerified,
		PhoneNumberVerified: d.PhoneNumberVerified,
	}
}

// Tokens is the digest pair stored against a session.
// IssuedAt is nil until the first pair is stored.
type Tokens struct {
	SessionID   int64
	UserID      int64
	AccessHash  string
	RefreshHash string
	IssuedAt    *time.Time
}
