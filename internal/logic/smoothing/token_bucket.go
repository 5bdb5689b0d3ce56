// Package smoothing implements per-campaign spend-rate limiting for the bid
// engine.
//
// Each campaign gets a token bucket denominated in currency units. A bid may
// only be committed after its price is reserved from the bucket; the bucket
// refills continuously, so a campaign can burst up to the bucket capacity but
// is held to the refill rate over time. Reservations whose downstream commit
// fails are refunded so capacity is not silently leaked.
package smoothing

import (
	"sync"
	"time"
)

// nowFn is used to get the current time. In production it's time.Now,
// but in tests we can replace it to simulate elapsed refill time.
var nowFn = time.Now

// consumeEpsilon absorbs floating error at the consume boundary.
const consumeEpsilon = 1e-9

// TokenBucket is a thread-safe token bucket holding fractional tokens.
//
// The bucket starts full and refills lazily based on whole elapsed seconds
// since the last refill. All operations are atomic with respect to each other
// for the same bucket.
type TokenBucket struct {
	capacity   float64 // Maximum tokens the bucket can hold
	refillRate float64 // Tokens added per second

	mu         sync.Mutex
	tokens     float64
	lastRefill int64 // epoch seconds of the last refill
}

// NewTokenBucket creates a full bucket with the given capacity and per-second
// refill rate.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		lastRefill: nowFn().Unix(),
	}
}

// refill adds tokens for whole elapsed seconds. Caller must hold mu.
func (tb *TokenBucket) refill() {
	now := nowFn().Unix()
	elapsed := now - tb.lastRefill
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+float64(elapsed)*tb.refillRate)
	tb.lastRefill = now
}

// TryConsume attempts to deduct amount tokens after refilling. It returns
// true when the deduction happened. Amounts <= 0 succeed without deduction.
// On failure the tokens stay at the refilled value.
func (tb *TokenBucket) TryConsume(amount float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if amount <= 0 {
		return true
	}
	if tb.tokens+consumeEpsilon >= amount {
		tb.tokens -= amount
		return true
	}
	return false
}

// Refund adds amount tokens back, capped at capacity. Used to undo a
// reservation whose downstream commit failed. Amounts <= 0 are ignored.
func (tb *TokenBucket) Refund(amount float64) {
	if amount <= 0 {
		return
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	tb.tokens = min(tb.capacity, tb.tokens+amount)
}

// Available refills and returns the current token count, for diagnostics.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}
