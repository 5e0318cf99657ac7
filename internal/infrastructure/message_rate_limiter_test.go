package infrastructure

import (
	"testing"
	"time"
)

func TestMessageRateLimiterBurstAndRefill(t *testing.T) {
	rl := NewMessageRateLimiter(1, 2)
	defer rl.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow(1) || !rl.Allow(1) {
		t.Fatalf("burst not honoured")
	}
	if rl.Allow(1) {
		t.Fatalf("allowed beyond burst")
	}
	if wait := rl.WaitTime(1); wait <= 0 || wait > time.Second {
		t.Fatalf("wait = %v", wait)
	}
	if !rl.Allow(2) {
		t.Fatalf("users share a bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow(1) {
		t.Fatalf("token not refilled")
	}
}

func TestMessageRateLimiterCleanup(t *testing.T) {
	rl := NewMessageRateLimiter(1, 1)
	defer rl.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	now = now.Add(5 * time.Minute)
	rl.Allow(2)
	now = now.Add(6 * time.Minute)
	rl.dropStale()

	rl.mu.Lock()
	_, kept := rl.limiters[2]
	n := len(rl.limiters)
	rl.mu.Unlock()
	if n != 1 || !kept {
		t.Fatalf("limiters after cleanup = %d (user 2 kept: %v), want only user 2", n, kept)
	}
}
