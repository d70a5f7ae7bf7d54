package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned when a login lookup misses. It never says which
	// of identifier or password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownSession is returned when a verified token no longer maps to a stored
	// session, e.g. after logout or rotation.
	ErrUnknownSession = errors.New("unknown session")

	// ErrRefreshRateLimited is returned when refresh is attempted too frequently for a session.
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// RefreshRateLimitError carries retry metadata for refresh throttling.
type RefreshRateLimitError struct {
	SessionID  int64
	RetryAfter time.Duration
}

func (e RefreshRateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrRefreshRateLimited.Error()
	}
	return fmt.Sprintf("%s: retry after %s", ErrRefreshRateLimited.Error(), e.RetryAfter)
}

func (e RefreshRateLimitError) Unwrap() error { return ErrRefreshRateLimited }
