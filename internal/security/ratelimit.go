package security

import (
	"sync"

	"golang.org/x/time/rate"
)

const defaultPerUserPerMinute = 20

// RateLimiter throttles chat updates per user so one chat cannot
// monopolize the bot. Fails open: an unknown user gets a fresh bucket.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	users map[int64]*rate.Limiter
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = defaultPerUserPerMinute
	}
	return &RateLimiter{
		limit: rate.Limit(float64(perMinute) / 60),
		burst: perMinute,
		users: map[int64]*rate.Limiter{},
	}
}

// Allow reports whether the user may issue another request right now.
func (r *RateLimiter) Allow(telegramID int64) bool {
	r.mu.Lock()
	limiter, ok := r.users[telegramID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.users[telegramID] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}
