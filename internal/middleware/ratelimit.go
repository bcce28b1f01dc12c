package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"trackvote/pkg/errors"
	"trackvote/pkg/logger"
)

// RateLimiter implements a sliding-window limiter keyed by client
type RateLimiter struct {
	mu       sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if !now.Before(rl.nextSweep) {
		rl.sweep(cutoff)
		rl.nextSweep = now.Add(rl.window)
	}

	requests := rl.requests[key]
	valid := requests[:0]
	for _, t := range requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// sweep drops clients whose newest request fell out of the window
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for key, requests := range rl.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(rl.requests, key)
		}
	}
}

// Limit rejects requests from a client once it exceeds the limiter's budget
func Limit(rl *RateLimiter, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !rl.Allow(ip) {
				logger.WithFields(map[string]interface{}{
					"path": r.URL.Path,
					"ip":   ip,
				}).Warn("Rate limit exceeded")
				errors.WriteJSON(w, &errors.AppError{
					Type:       errors.ErrorTypeRateLimited,
					Message:    "Too many requests, please try again later",
					StatusCode: http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's address. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}
