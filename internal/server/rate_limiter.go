// Package server throttles inbound events per connection so one noisy client
// cannot monopolize a room.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter returns a token bucket holding capacity tokens that refills
// completely once per interval.
func newRateLimiter(capacity int, interval time.Duration) *rate.Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	every := interval / time.Duration(capacity)
	return rate.NewLimiter(rate.Every(every), capacity)
}
