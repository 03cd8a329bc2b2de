// Package ratelimit guards the auth endpoints against brute forcing.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// DefaultRequestsPerWindow is how many auth requests a single IP
	// may make per window before being rejected.
	DefaultRequestsPerWindow = 10
	// DefaultWindow is the fixed-window duration.
	DefaultWindow = time.Minute

	// Expired buckets are swept once the map grows past this.
	maxTrackedIPs = 1024
)

type ipBucket struct {
	count   int
	resetAt time.Time
}

// AuthLimiter applies a fixed-window per-IP limit. All password
// attempts land on the endpoints of a single-user app, so there is no
// per-account lockout state to track; throttling the source address is
// the whole defense.
type AuthLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   int
	window  time.Duration
}

// NewAuthLimiter creates a limiter with the default limits.
func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   DefaultRequestsPerWindow,
		window:  DefaultWindow,
	}
}

// Middleware rejects requests from IPs over the limit with 429.
func (l *AuthLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func (l *AuthLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	bucket, ok := l.buckets[ip]
	if !ok || now.After(bucket.resetAt) {
		if len(l.buckets) >= maxTrackedIPs {
			l.sweepLocked(now)
		}
		l.buckets[ip] = &ipBucket{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}

	bucket.count++
	return true
}

func (l *AuthLimiter) sweepLocked(now time.Time) {
	for ip, bucket := range l.buckets {
		if now.After(bucket.resetAt) {
			delete(l.buckets, ip)
		}
	}
}
