package token

import (
	"fmt"
	"strconv"
	"time"
)

// Type tags a token as Access or Refresh.
type Type int

const (
	TypeAccess Type = iota + 1
	TypeRefresh
)

func (t Type) String() string {
	switch t {
	case TypeAccess:
		return "Access"
	case TypeRefresh:
		return "Refresh"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseType parses the token_type claim value.
func ParseType(s string) (Type, error) {
	switch s {
	case "Access":
		return TypeAccess, nil
	case "Refresh":
		return TypeRefresh, nil
	}
	return 0, fmt.Errorf("unknown token type %q", s)
}

// DeviceType is the kind of client that opened a session.
type DeviceType string

const (
	DeviceMobile  DeviceType = "Mobile"
	DeviceBrowser DeviceType = "Browser"
	DeviceDesktop DeviceType = "Desktop"
)

// ParseDeviceType parses a device_type claim value.
func ParseDeviceType(s string) (DeviceType, error) {
	switch d := DeviceType(s); d {
	case DeviceMobile, DeviceBrowser, DeviceDesktop:
		return d, nil
	}
	return "", fmt.Errorf("unknown device type %q", s)
}

// Session is the session state a token is minted from.
type Session struct {
	ID                  int64
	UserID              int64
	LoginAt             time.Time
	DeviceType          *DeviceType
	DeviceName          *string
	EmailVerified       bool
	PhoneNumberVerified bool
}

// Decoded is the verified content of a token.
type Decoded struct {
	// ID is the jti claim. Empty until the token is encoded.
	ID                  string
	SessionID           int64
	Subject             string
	LoginAt             time.Time
	DeviceType          *DeviceType
	DeviceName          *string
	Type                Type
	IssuedAt            time.Time
	ExpiresAt           time.Time
	EmailVerified       bool
	PhoneNumberVerified bool
}

// UserID parses the subject as the numeric user id.
func (d Decoded) UserID() (int64, error) {
	return strconv.ParseInt(d.Subject, 10, 64)
}

// Session reconstructs the session view carried by the token.
func (d Decoded) Session() (Session, error) {
	uid, err := d.UserID()
	if err != nil {
		return Session{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return Session{
		ID:                  d.SessionID,
		UserID:              uid,
		LoginAt:             d.LoginAt,
		DeviceType:          d.DeviceType,
		DeviceName:          d.DeviceName,
		EmailVerified:       d.EmailVerified,
		PhoneNumberVerified: d.PhoneNumberVerified,
	}, nil
}

// Encoded is a signed bearer string tagged with its type.
type Encoded struct {
	Type  Type
	Value string
}

// AccessToken tags v as an access token.
func AccessToken(v string) Encoded { return Encoded{Type: TypeAccess, Value: v} }

// RefreshToken tags v as a refresh token.
func RefreshToken(v string) Encoded { return Encoded{Type: TypeRefresh, Value: v} }

// Pair is the result of every issuance.
type Pair struct {
	Access  Encoded
	Refresh Encoded
}
