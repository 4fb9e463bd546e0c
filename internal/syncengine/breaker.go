package syncengine

import (
	"sync"
	"time"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/clock"
)

// circuitBreakerFailureRate and circuitBreakerMinSample gate when a batch's
// failure rate trips the breaker (spec §4.4.2).
const (
	circuitBreakerFailureRate = 0.8
	circuitBreakerMinSample   = 5
	circuitBreakerResetAfter  = 300 * time.Second
)

// breaker stops the drain from hammering a broadly failing remote store.
// It is read and mutated only on the drain goroutine (spec §5, "Mutual
// exclusion"), so it needs no internal lock beyond what callers already
// hold; the mutex here guards against Engine.CircuitBreakerTripped reading
// it concurrently.
type breaker struct {
	mu        sync.Mutex
	tripped   bool
	resetAt   time.Time
	successes int
}

// shouldSkipDrain reports whether step 3 of the drain algorithm should
// bail out, clearing the trip first if resetAt has passed.
func (b *breaker) shouldSkipDrain(c clock.Clock) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		return false
	}
	if !c.Now().Before(b.resetAt) {
		b.tripped = false
		b.successes = 0
		return false
	}
	return true
}

// recordBatch updates breaker state from one drain batch's outcome.
func (b *breaker) recordBatch(c clock.Clock, succeeded, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := succeeded + failed
	if total >= circuitBreakerMinSample {
		rate := float64(failed) / float64(total)
		if rate >= circuitBreakerFailureRate {
			b.tripped = true
			b.resetAt = c.Now().Add(circuitBreakerResetAfter)
			b.successes = 0
			return
		}
	}

	if b.tripped {
		b.successes += succeeded
		if b.successes >= 2 {
			b.tripped = false
			b.successes = 0
		}
	}
}

// snapshot reports the breaker's current state for status reporting.
func (b *breaker) snapshot() (tripped bool, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped, b.resetAt
}
