package server

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// uploadRateLimiter keeps one token bucket per owner.
type uploadRateLimiter struct {
	mu            sync.Mutex
	limiters      map[string]*ownerLimiter
	limit         rate.Limit
	burst         int
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type ownerLimiter struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// newUploadRateLimiter returns nil when perMinute is zero, which disables limiting.
func newUploadRateLimiter(perMinute, burst int) *uploadRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(float64(perMinute) / 60.0)
	staleAfter := 2 * time.Duration(float64(burst)/float64(limit)*float64(time.Second))
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &uploadRateLimiter{
		limiters:      make(map[string]*ownerLimiter),
		limit:         limit,
		burst:         burst,
		staleAfter:    staleAfter,
		cleanupEveryN: 64,
	}
}

func (l *uploadRateLimiter) Allow(owner string, now time.Time) bool {
	if l == nil || owner == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[owner]
	if !ok {
		entry = &ownerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[owner] = entry
	}
	entry.lastSeenAt = now
	l.maybeCleanupLocked(now)
	return entry.limiter.AllowN(now, 1)
}

// RetryAfterSeconds estimates the wait until one token refills.
func (l *uploadRateLimiter) RetryAfterSeconds() int {
	if l == nil || l.limit <= 0 {
		return 1
	}
	seconds := int(math.Ceil(1.0 / float64(l.limit)))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (l *uploadRateLimiter) size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *uploadRateLimiter) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	for owner, entry := range l.limiters {
		if now.Sub(entry.lastSeenAt) > l.staleAfter {
			delete(l.limiters, owner)
		}
	}
}
