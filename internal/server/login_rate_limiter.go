package server

import (
	"sync"
	"time"
)

const (
	loginMaxFailures = 5
	loginWindow      = 5 * time.Minute
	loginBlockFor    = 5 * time.Minute
)

// loginRateLimiter blocks a client+email key after repeated failed logins.
type loginRateLimiter struct {
	mu            sync.Mutex
	entries       map[string]*loginAttempts
	maxFailures   int
	window        time.Duration
	blockedFor    time.Duration
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type loginAttempts struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeenAt   time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockedFor)
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &loginRateLimiter{
		entries:       make(map[string]*loginAttempts),
		maxFailures:   maxFailures,
		window:        window,
		blockedFor:    blockedFor,
		staleAfter:    staleAfter,
		cleanupEveryN: 64,
	}
}

func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.touchLocked(key, now)
	if now.Before(entry.blockedUntil) {
		return false
	}
	entry.blockedUntil = time.Time{}
	if !entry.windowStart.IsZero() && now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
	return true
}

func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.touchLocked(key, now)
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
}

func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *loginRateLimiter) touchLocked(key string, now time.Time) *loginAttempts {
	entry, ok := l.entries[key]
	if !ok {
		entry = &loginAttempts{}
		l.entries[key] = entry
	}
	entry.lastSeenAt = now

	l.opCount++
	if l.opCount%l.cleanupEveryN == 0 {
		for k, e := range l.entries {
			if now.Sub(e.lastSeenAt) > l.staleAfter {
				delete(l.entries, k)
			}
		}
	}
	return entry
}
