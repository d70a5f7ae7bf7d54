package session

import (
	"context"
	"time"

	"authkit/cmd/identity"
)

// Hasher digests secrets before they reach storage.
// Match(o, h) must be equivalent to Hash(o) == h.
type Hasher interface {
	Hash(value string) string
	Match(original, hash string) bool
}

// passwordPolicy is implemented by password hashers that enforce a policy.
type passwordPolicy interface {
	Validate(password string) error
}

// Store abstracts persistence for accounts and device sessions.
//
// Identifier arguments are already normalized. Missing users are reported as
// identity.ErrNotFound.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (identity.User, error)
	FindUsersByEmail(ctx context.Context, email string) ([]identity.User, error)
	FindUsersByPhoneNumber(ctx context.Context, phone string) ([]identity.User, error)
	FindUsersByUsername(ctx context.Context, username string) ([]identity.User, error)

	// CreateUser persists u with its password digest and returns it with ID assigned.
	CreateUser(ctx context.Context, u identity.User, passwordHash string) (identity.User, error)

	// GetUserByCredentials returns the user whose identifier of kind and password digest
	// both match, or identity.ErrNotFound.
	GetUserByCredentials(ctx context.Context, kind Credential, identifier, passwordHash string) (identity.User, error)

	UpdateUser(ctx context.Context, u identity.User) (identity.User, error)

	// DeleteUser removes the user and all of its sessions.
	DeleteUser(ctx context.Context, id int64) (bool, error)

	// CreateSession persists s and returns it with ID assigned. No tokens are stored yet.
	CreateSession(ctx context.Context, s DeviceSession) (DeviceSession, error)

	// GetSessionByRefreshHash returns the session whose current refresh digest is hash,
	// or ErrUnknownSession.
	GetSessionByRefreshHash(ctx context.Context, hash string) (DeviceSession, error)

	// GetSessionTokens returns the stored digests, or ErrUnknownSession.
	GetSessionTokens(ctx context.Context, sessionID int64) (Tokens, error)

	// UpdateSessionTokens overwrites the digest pair unconditionally.
	UpdateSessionTokens(ctx context.Context, sessionID int64, accessHash, refreshHash string, at time.Time) error

	// SwapSessionTokens overwrites the digest pair only if the stored refresh digest is
	// still oldRefreshHash. It reports whether the swap happened.
	SwapSessionTokens(ctx context.Context, sessionID int64, oldRefreshHash, accessHash, refreshHash string, at time.Time) (bool, error)

	DeleteSession(ctx context.Context, userID, sessionID int64) (bool, error)
	DeleteSessions(ctx context.Context, userID int64) (bool, error)

	// PurgeSessions deletes sessions created before unissuedBefore that never received
	// tokens, and sessions whose last issuance is before issuedBefore.
	PurgeSessions(ctx context.Context, unissuedBefore, issuedBefore time.Time) (int64, error)
}
