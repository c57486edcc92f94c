package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces a per-client requests-per-minute limit.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	clients           map[string]*clientUsage
}

type clientUsage struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute requests
// per client per minute.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		clients:           make(map[string]*clientUsage),
	}
}

// Check records a request for clientID and returns a *RateLimitError
// when the limit is exceeded.
func (rl *RateLimiter) Check(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, ok := rl.clients[clientID]
	if !ok || now.Sub(usage.windowStart) >= time.Minute {
		usage = &clientUsage{windowStart: now}
		rl.clients[clientID] = usage
	}

	if rl.requestsPerMinute > 0 && usage.count >= rl.requestsPerMinute {
		return &RateLimitError{
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.windowStart),
		}
	}
	usage.count++
	return nil
}

// RateLimitError reports an exceeded request limit.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d/min, retry after: %v)", e.Limit, e.RetryAfter)
}
