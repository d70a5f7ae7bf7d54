package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RefreshLimiter allows one refresh per session every interval.
type RefreshLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	ttl      time.Duration
	entries  map[int64]*refreshBucket
}

type refreshBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRefreshLimiter returns nil when interval is not positive; a nil limiter allows everything.
func NewRefreshLimiter(interval time.Duration) *RefreshLimiter {
	if interval <= 0 {
		return nil
	}
	return &RefreshLimiter{
		interval: interval,
		ttl:      10 * interval,
		entries:  make(map[int64]*refreshBucket),
	}
}

// Allow consumes one refresh for sessionID at now. On refusal it returns a
// RefreshRateLimitError with the remaining wait.
func (l *RefreshLimiter) Allow(sessionID int64, now time.Time) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.entries[sessionID]
	if b == nil {
		b = &refreshBucket{lim: rate.NewLimiter(rate.Every(l.interval), 1)}
		l.entries[sessionID] = b
	}
	b.lastSeen = now

	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.entries, k)
		}
	}

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return RefreshRateLimitError{SessionID: sessionID, RetryAfter: delay}
	}
	return nil
}

// Forget drops the bucket of a closed session.
func (l *RefreshLimiter) Forget(sessionID int64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.entries, sessionID)
	l.mu.Unlock()
}
