package service

import "time"

// NewTokenBucketWithClock exposes the clock seam to external tests.
func NewTokenBucketWithClock(rate, capacity float64, now func() time.Time) *TokenBucket {
	return newTokenBucket(rate, capacity, now)
}

// BucketCount returns how many keys are tracked.
func (tb *TokenBucket) BucketCount() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Prune runs one sweep immediately.
func (tb *TokenBucket) Prune() { tb.prune() }
