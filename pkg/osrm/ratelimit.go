package osrm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests per routing host. Every host gets its own
// token bucket with the same interval and burst.
type RateLimiter struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows one request per interval with the given burst.
// A zero interval disables limiting.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		interval: interval,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[host]
	if !ok {
		limit := rate.Inf
		if rl.interval > 0 {
			limit = rate.Every(rl.interval)
		}
		l = rate.NewLimiter(limit, rl.burst)
		rl.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if err := rl.limiter(host).Wait(ctx); err != nil {
		slog.Debug("rate limiter wait error", "host", host, "error", err)
		return err
	}
	return nil
}
