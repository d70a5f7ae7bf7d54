// Package token encodes session-bound Access and Refresh tokens as signed JWTs.
//
// Tokens carry the registered claims sub, iat, exp, iss, aud and jti plus the session
// claims session_id, login_at, device_type, device_name, token_type, email_verified and
// phone_number_verified. Every custom claim is a JSON string.
//
// Two signing strategies implement the same Codec: HS256 with a shared secret, and RS256
// with a KeySet addressed by the "kid" header so keys can rotate without invalidating
// tokens signed by keys that are still registered.
package token
