// Package ratelimit throttles costly operations, such as research runs
// started by MCP clients, with a per-key token bucket.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether an operation identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow consumes one token for key. When it returns false, retryAfter is
	// how long until a token is available. Returning an error signals a
	// limiter malfunction; callers treat errors as fail-open.
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Rule is a token bucket: one token is added every Every, up to Burst.
type Rule struct {
	Every time.Duration
	Burst int
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool { return r.Every > 0 && r.Burst > 0 }

// NoopLimiter permits every operation. Used when limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }

// New returns a MemoryLimiter for rule, or a NoopLimiter if the rule is
// disabled.
func New(rule Rule) Limiter {
	if !rule.Enabled() {
		return NoopLimiter{}
	}
	return NewMemoryLimiter(rule)
}
