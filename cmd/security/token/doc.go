// Package token hashes issued bearer tokens before they reach storage.
//
// Modes:
// - HMAC-SHA256(token, key) when a key is configured (production).
// - SHA-256(token) when no key is configured (dev/tests).
//
// Output is always a 64-char lower-case hex string, so digests can be indexed and
// compared in constant time.
//
// Environment:
// - AUTHKIT_TOKEN_HMAC_KEY: when set, enables HMAC mode.
package token
