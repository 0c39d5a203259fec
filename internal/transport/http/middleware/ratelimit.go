package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rajibhasenraju/modern-url-shortener/internal/constants"
	"github.com/rajibhasenraju/modern-url-shortener/pkg/httputils"
)

// WindowCounter counts events per key in a fixed time window.
type WindowCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// FixedWindowLimiter enforces a simple counter per user per fixed time window.
type FixedWindowLimiter struct {
	counter WindowCounter
	limit   int64
}

func NewFixedWindowLimiter(counter WindowCounter, limitPerMinute int) *FixedWindowLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	return &FixedWindowLimiter{
		counter: counter,
		limit:   int64(limitPerMinute),
	}
}

// RateLimitMiddleware throttles requests per authenticated user, falling back
// to the client IP. A nil limiter disables throttling.
func RateLimitMiddleware(limiter *FixedWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			count, err := limiter.counter.Incr(ctx, key)
			if err != nil {
				// Fail open. Creation must not stall when the counter
				// backend is temporarily unavailable.
				next.ServeHTTP(w, r)
				return
			}
			if count > limiter.limit {
				httputils.WriteAPIError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if user := UserFromContext(r.Context()); user != "" {
		return "user:" + user
	}

	// Fallback: use client IP (best-effort).
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:unknown"
}
