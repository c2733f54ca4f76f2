package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxBuckets bounds the key map; stale buckets are purged lazily past it.
const maxBuckets = 1000

type bucket struct {
	tokens     float64
	lastAccess time.Time
}

// MemoryLimiter implements Limiter with an in-memory token bucket per key.
// It holds no goroutines; full buckets are dropped lazily once the key map
// grows past maxBuckets.
type MemoryLimiter struct {
	rule Rule
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter creates a token bucket limiter for rule. rule must be
// enabled.
func NewMemoryLimiter(rule Rule) *MemoryLimiter {
	return &MemoryLimiter{
		rule:    rule,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from the bucket for key.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	burst := float64(m.rule.Burst)
	b, ok := m.buckets[key]
	if !ok {
		if len(m.buckets) >= maxBuckets {
			m.purgeFull(now)
		}
		// First request for this key: start with a full bucket minus one token.
		m.buckets[key] = &bucket{tokens: burst - 1, lastAccess: now}
		return true, 0, nil
	}

	b.tokens = min(burst, b.tokens+m.refill(now.Sub(b.lastAccess)))
	b.lastAccess = now

	if b.tokens < 1 {
		missing := 1 - b.tokens
		return false, time.Duration(missing * float64(m.rule.Every)).Round(time.Millisecond), nil
	}
	b.tokens--
	return true, 0, nil
}

func (m *MemoryLimiter) refill(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(m.rule.Every)
}

// purgeFull removes buckets that would be full by now; forgetting them is
// indistinguishable from keeping them. Must be called with mu held.
func (m *MemoryLimiter) purgeFull(now time.Time) {
	burst := float64(m.rule.Burst)
	for key, b := range m.buckets {
		if b.tokens+m.refill(now.Sub(b.lastAccess)) >= burst {
			delete(m.buckets, key)
		}
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
