package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huddlechat/huddle/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimiter implements fixed-window rate limiting keyed by client IP,
// backed by Redis. With no Redis client it is a pass-through, so development
// mode stays unconstrained.
type RateLimiter struct {
	client *redis.Client
	logger zerolog.Logger
	limits map[string]RateLimit
}

// NewRateLimiter creates a new rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /api/register": {10, time.Hour},
			"POST /api/login":    {30, 10 * time.Minute},
			"POST /api/upload":   {60, time.Hour},
		},
	}
}

// Middleware enforces the configured per-endpoint limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		endpoint := r.Method + " " + r.URL.Path
		limit, ok := rl.limits[endpoint]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP(r))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Redis trouble must not take the API down; let the request
			// through and leave a trace.
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, limit.Window)
		}

		remaining := limit.Requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > limit.Requests {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller address, trusting chi's RealIP middleware to
// have rewritten RemoteAddr already.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
