package auth

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/catalog/internal/config"
)

// Defaults applied to zero login limit settings of config.Auth.
const (
	DefaultMaxLoginAttempts = 5
	DefaultRateLimitWindow  = 15 * time.Minute
	DefaultLockoutDuration  = 30 * time.Minute
)

type loginKey struct {
	ip    string
	email string
}

type loginFailures struct {
	count       int
	since       time.Time
	lockedUntil time.Time
}

// LoginLimiter locks out a client IP from signing in as one email after too
// many wrong passwords inside a window. Success clears the record.
type LoginLimiter struct {
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time

	mu        sync.Mutex
	failures  map[loginKey]*loginFailures
	lastPrune time.Time
}

// NewLoginLimiter creates a limiter from the login settings of cfg.
func NewLoginLimiter(cfg config.Auth) *LoginLimiter {
	l := &LoginLimiter{
		maxAttempts: cfg.MaxLoginAttempts,
		window:      cfg.RateLimitWindow,
		lockout:     cfg.LockoutDuration,
		now:         time.Now,
		failures:    make(map[loginKey]*loginFailures),
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = DefaultMaxLoginAttempts
	}
	if l.window <= 0 {
		l.window = DefaultRateLimitWindow
	}
	if l.lockout <= 0 {
		l.lockout = DefaultLockoutDuration
	}
	return l
}

func newLoginKey(ip, email string) loginKey {
	return loginKey{ip: ip, email: strings.ToLower(strings.TrimSpace(email))}
}

// current returns the live record for key, dropping it once both its window
// and any lockout have passed. Callers hold l.mu.
func (l *LoginLimiter) current(key loginKey, now time.Time) *loginFailures {
	f, ok := l.failures[key]
	if !ok {
		return nil
	}
	if now.Before(f.lockedUntil) {
		return f
	}
	if !f.lockedUntil.IsZero() || now.Sub(f.since) > l.window {
		delete(l.failures, key)
		return nil
	}
	return f
}

// Check reports whether ip may attempt to sign in as email. When it may not,
// retryAfter is the remaining lockout.
func (l *LoginLimiter) Check(ip, email string) (retryAfter time.Duration, ok bool) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.current(newLoginKey(ip, email), now)
	if f != nil && now.Before(f.lockedUntil) {
		return f.lockedUntil.Sub(now), false
	}
	return 0, true
}

// Fail records a wrong password. It returns the lockout started by this
// failure, or zero.
func (l *LoginLimiter) Fail(ip, email string) time.Duration {
	now := l.now()
	key := newLoginKey(ip, email)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(now)

	f := l.current(key, now)
	if f == nil {
		f = &loginFailures{since: now}
		l.failures[key] = f
	}
	f.count++
	if f.count >= l.maxAttempts && f.lockedUntil.IsZero() {
		f.lockedUntil = now.Add(l.lockout)
		return l.lockout
	}
	return 0
}

// Reset forgets the failures of ip signing in as email.
func (l *LoginLimiter) Reset(ip, email string) {
	l.mu.Lock()
	delete(l.failures, newLoginKey(ip, email))
	l.mu.Unlock()
}

// prune drops expired records at most once per window. Callers hold l.mu.
func (l *LoginLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	for key := range l.failures {
		l.current(key, now)
	}
}

// size is the number of tracked records.
func (l *LoginLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}

// retryAfterSeconds renders d for the Retry-After header, rounding up.
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
