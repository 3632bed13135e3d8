// Package resilience provides a minimal fail-fast circuit for the remote
// resolution endpoints. A tripped circuit turns lookups into immediate
// misses; it never retries and never surfaces an error.
package resilience

import (
	"sync"
	"time"
)

// Breaker opens after Threshold consecutive failures and stays open for
// Cooldown, during which Allow reports false. The first success closes
// it again.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewBreaker creates a breaker. Threshold <= 0 defaults to 5 and
// cooldown <= 0 defaults to 30s.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// Allow reports whether a request may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().After(b.openUntil)
}

// Record feeds a request outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = time.Now().Add(b.cooldown)
		b.failures = 0
	}
}

// Open reports whether the circuit is currently open.
func (b *Breaker) Open() bool {
	return !b.Allow()
}
