// Package password hashes account passwords with Argon2id.
//
// Accounts are looked up by identifier and password digest, so hashing must be
// deterministic: the salt is derived once from a deployment pepper (HKDF-SHA256) instead
// of being drawn per password. The digest is a PHC-like string:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Match recomputes the digest with the configured parameters and compares it in constant
// time. Costs and parallelism are fixed per deployment; raising them requires re-hashing.
package password
