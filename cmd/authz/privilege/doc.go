// Package privilege implements the privilege string grammar used for authorization.
//
// A privilege is written as
//
//	action:resource[@resourceID][Texpiry]
//
// where action and resource are lower-case letters (empty means "any"), resourceID is a
// signed base-10 int64 and expiry is an RFC 3339 timestamp. A held privilege satisfies a required
// one when every held field is either a wildcard or equal to the required field, and the
// held expiry outlives the required one.
package privilege
