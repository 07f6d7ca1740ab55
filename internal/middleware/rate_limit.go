package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoginRateLimit caps login request volume per IP. This is a coarse
// request cap layered in front of the ban ledger, independent of its
// attempt counting.
func LoginRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 20, Window: 5 * time.Minute}
}

// PasswordChangeRateLimit caps password change request volume per IP.
func PasswordChangeRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 30, Window: 15 * time.Minute}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}
