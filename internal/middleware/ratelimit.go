package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ashureev/portal-gateway/internal/identity"
)

// RateLimiter allows each client IP a burst of requests per window, refilled
// evenly across the window.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	requests int
	every    time.Duration
	now      func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter for requests per window.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		clients:  make(map[string]*client),
		requests: requests,
		every:    window / time.Duration(requests),
		now:      time.Now,
	}
}

// allow consumes one token for key and reports the remaining tokens and when
// the bucket is full again.
func (rl *RateLimiter) allow(key string) (ok bool, remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, found := rl.clients[key]
	if !found {
		c = &client{limiter: rate.NewLimiter(rate.Every(rl.every), rl.requests)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	ok = c.limiter.AllowN(now, 1)
	tokens := c.limiter.TokensAt(now)
	remaining = int(math.Max(0, math.Floor(tokens)))
	missing := float64(rl.requests) - tokens
	reset = now.Add(time.Duration(missing * float64(rl.every)))
	return ok, remaining, reset
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, reset := rl.allow(identity.IPFromRequest(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(int64(math.Ceil(float64(reset.UnixMilli())/1000)), 10))

		if !ok {
			h.Set("Content-Type", "application/json")
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.every.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"message": "Too many requests, please try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup forgets clients idle for longer than idle and returns how many
// were removed.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.Cleanup(interval); n > 0 {
					slog.Debug("rate limiter clients removed", "count", n)
				}
			}
		}
	}()
}
