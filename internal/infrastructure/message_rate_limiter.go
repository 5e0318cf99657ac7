package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleLimiterAge is how long an unused limiter is kept before cleanup drops it.
const staleLimiterAge = 10 * time.Minute

// MessageRateLimiter keeps one token bucket per user.
type MessageRateLimiter struct {
	mu          sync.Mutex
	limiters    map[int]*userLimiter
	rate        rate.Limit
	burst       int
	cleanupTick time.Duration
	stop        chan struct{}
	now         func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter allows perSecond requests per user with the given burst.
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		limiters:    make(map[int]*userLimiter),
		rate:        rate.Limit(perSecond),
		burst:       burst,
		cleanupTick: 5 * time.Minute,
		stop:        make(chan struct{}),
		now:         time.Now,
	}

	go rl.cleanup()

	return rl
}

func (rl *MessageRateLimiter) get(userID int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[userID]
	if !exists {
		entry = &userLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[userID] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// Allow consumes one token for userID when available.
func (rl *MessageRateLimiter) Allow(userID int) bool {
	return rl.get(userID).AllowN(rl.now(), 1)
}

// WaitTime returns how long userID must wait for the next token.
func (rl *MessageRateLimiter) WaitTime(userID int) time.Duration {
	limiter := rl.get(userID)
	now := rl.now()
	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}

func (rl *MessageRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.dropStale()
		}
	}
}

func (rl *MessageRateLimiter) dropStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for userID, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterAge {
			delete(rl.limiters, userID)
		}
	}
}

// Close stops the cleanup goroutine.
func (rl *MessageRateLimiter) Close() {
	close(rl.stop)
}
