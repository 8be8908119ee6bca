package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window request counter shared by all API instances.
type RateLimiter struct {
	cache  *Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per identifier per window.
func NewRateLimiter(cache *Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a request and reports whether it fits into the current window.
func (r *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}

	slot := r.now().UnixNano() / int64(r.window)
	n, err := r.cache.IncrWindow(ctx, RateLimitKey(identifier, slot), r.window)
	if err != nil {
		return false, err
	}
	return n <= int64(r.limit), nil
}
