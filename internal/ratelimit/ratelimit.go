// Package ratelimit throttles rating submissions per rater.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store decides whether the caller identified by key may proceed. When it
// may not, retryAfter tells the caller how long to wait.
type Store interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per key in process memory. Buckets refill
// at perMinute tokens per minute and hold at most perMinute tokens.
type Memory struct {
	mu       sync.Mutex
	limiters map[string]*memoryEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewMemory creates an in-process store allowing perMinute requests per key.
func NewMemory(perMinute int) *Memory {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Memory{
		limiters: make(map[string]*memoryEntry),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.limiters[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return true, 0, nil
	}
	missing := 1 - entry.limiter.TokensAt(now)
	wait := time.Duration(missing / float64(m.limit) * float64(time.Second))
	if wait < time.Second {
		wait = time.Second
	}
	return false, wait, nil
}

// Cleanup drops buckets idle for longer than maxIdle.
func (m *Memory) Cleanup(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for key, entry := range m.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(m.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (m *Memory) RunCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(maxIdle)
		}
	}
}
