// Package session implements account and device-session lifecycle.
//
// Accounts are created under a configurable requiredness/uniqueness policy for the
// username, email and phone number identifiers. A successful login opens a device
// session and returns an Access/Refresh token pair; only digests of the issued tokens
// are persisted. Refresh rotates the pair with a compare-and-swap on the stored refresh
// digest, so a refresh token is single-use even under concurrent presentation.
//
// The Service is generic over the caller's user type through a pair of mapping
// functions supplied at construction.
package session
